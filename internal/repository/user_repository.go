package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/advisor-scheduler/internal/model"
)

const userColumns = `id, first_name, second_name, last_name, email, phone_number, document,
	password_hash, created_at, last_meeting_scheduled, is_active, role, google_access_token`

// UserRepo provides data access to the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FirstName, &u.SecondName, &u.LastName, &u.Email, &u.PhoneNumber,
		&u.Document, &u.PasswordHash, &u.CreatedAt, &u.LastMeetingScheduled, &u.IsActive, &u.Role,
		&u.GoogleAccessToken)
	return u, err
}

// Create inserts u and returns its ID.  A unique key collision returns a
// *DuplicateError naming the column.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	if u.Role == "" {
		u.Role = model.RoleRegular
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (first_name, second_name, last_name, email, phone_number, document,
			password_hash, is_active, role, google_access_token)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.FirstName, u.SecondName, u.LastName, u.Email, u.PhoneNumber, u.Document,
		u.PasswordHash, u.IsActive, u.Role, u.GoogleAccessToken)
	if err != nil {
		return 0, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *UserRepo) getBy(ctx context.Context, column string, value any) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+column+" = ? LIMIT 1", value))
	return u, translate(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail fetches a user by email.  The column uses a binary collation
// so the lookup is case-sensitive.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (model.User, error) {
	return r.getBy(ctx, "phone_number", phone)
}

func (r *UserRepo) GetByDocument(ctx context.Context, document string) (model.User, error) {
	return r.getBy(ctx, "document", document)
}

// List returns users ordered by id, skipping the first skip rows.
func (r *UserRepo) List(ctx context.Context, skip, limit int) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY id LIMIT ? OFFSET ?", limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nullable stores an empty optional column as NULL so it stays out of the
// unique keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Update applies every non-nil field of upd to the user row.  Password is
// ignored here; callers hash it into PasswordHash first.
func (r *UserRepo) Update(ctx context.Context, id uint64, upd model.UserUpdate) error {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.FirstName != nil {
		add("first_name", *upd.FirstName)
	}
	if upd.SecondName != nil {
		add("second_name", nullable(*upd.SecondName))
	}
	if upd.LastName != nil {
		add("last_name", *upd.LastName)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.PhoneNumber != nil {
		add("phone_number", nullable(*upd.PhoneNumber))
	}
	if upd.Document != nil {
		add("document", nullable(*upd.Document))
	}
	if upd.PasswordHash != nil {
		add("password_hash", *upd.PasswordHash)
	}
	if upd.LastMeetingScheduled != nil {
		add("last_meeting_scheduled", upd.LastMeetingScheduled.UTC())
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.Role != nil {
		add("role", string(*upd.Role))
	}
	if upd.GoogleAccessToken != nil {
		add("google_access_token", *upd.GoogleAccessToken)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return translate(err)
	}
	return r.requireRow(ctx, res, id)
}

// requireRow maps "0 rows affected" to ErrNotFound.  MySQL reports 0 for
// an UPDATE that matched a row but changed nothing, so a miss is confirmed
// with a lookup before reporting it.
func (r *UserRepo) requireRow(ctx context.Context, res sql.Result, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", id).Scan(&one)
	return translate(err)
}

// SetActive flips the activation flag.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	return r.Update(ctx, id, model.UserUpdate{IsActive: &active})
}

// SetExternalToken stores the external login provider's access token.
func (r *UserRepo) SetExternalToken(ctx context.Context, id uint64, token string) error {
	return r.Update(ctx, id, model.UserUpdate{GoogleAccessToken: &token})
}

// Delete removes the user; tokens and meetings go with it (ON DELETE CASCADE).
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
