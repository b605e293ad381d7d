package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/advisor-scheduler/internal/model"
)

// AdvisorRepo provides data access to the advisors table and implements
// the least-recently-assigned rotation.
type AdvisorRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewAdvisorRepo(db *sql.DB) *AdvisorRepo {
	return &AdvisorRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts an advisor whose last_assigned_time is its creation time.
func (r *AdvisorRepo) Create(ctx context.Context, name, email string) (model.Advisor, error) {
	now := r.now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO advisors (name, email, last_assigned_time) VALUES (?,?,?)`, name, email, now)
	if err != nil {
		return model.Advisor{}, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Advisor{}, err
	}
	return model.Advisor{ID: uint64(id), Name: name, Email: email, LastAssignedTime: now}, nil
}

// GetByEmail fetches an advisor by email.
func (r *AdvisorRepo) GetByEmail(ctx context.Context, email string) (model.Advisor, error) {
	var a model.Advisor
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, last_assigned_time FROM advisors WHERE email = ? LIMIT 1`, email).
		Scan(&a.ID, &a.Name, &a.Email, &a.LastAssignedTime)
	return a, translate(err)
}

// List returns every advisor in rotation order.
func (r *AdvisorRepo) List(ctx context.Context) ([]model.Advisor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, last_assigned_time FROM advisors ORDER BY last_assigned_time, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Advisor{}
	for rows.Next() {
		var a model.Advisor
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.LastAssignedTime); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Next selects the advisor with the oldest last_assigned_time, stamps it
// with the current time and returns the row as it was before the update.
// The row is locked with SELECT ... FOR UPDATE so two concurrent callers
// never receive the same advisor.  ErrNotFound means there are no advisors.
func (r *AdvisorRepo) Next(ctx context.Context) (model.Advisor, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Advisor{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var a model.Advisor
	err = tx.QueryRowContext(ctx,
		`SELECT id, name, email, last_assigned_time FROM advisors
		 ORDER BY last_assigned_time, id LIMIT 1 FOR UPDATE`).
		Scan(&a.ID, &a.Name, &a.Email, &a.LastAssignedTime)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Advisor{}, ErrNotFound
	}
	if err != nil {
		return model.Advisor{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE advisors SET last_assigned_time = ? WHERE id = ?`, r.now(), a.ID); err != nil {
		return model.Advisor{}, err
	}
	if err = tx.Commit(); err != nil {
		return model.Advisor{}, err
	}
	committed = true
	return a, nil
}
