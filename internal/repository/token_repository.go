package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/advisor-scheduler/internal/model"
	"github.com/iliyamo/advisor-scheduler/internal/utils"
)

// Token tables.  Both share the same column layout.
const (
	EmailConfirmationTokens = "email_confirmation_tokens"
	PasswordResetTokens     = "password_reset_tokens"
)

// TokenRepo persists the shadow records of single-use tokens in one of the
// token tables.  Rows are keyed by utils.HashToken of the raw token.
type TokenRepo struct {
	DB    *sql.DB
	table string
}

func NewTokenRepo(db *sql.DB, table string) *TokenRepo { return &TokenRepo{DB: db, table: table} }

// Insert stores a fresh, unused record.  An unknown user id surfaces as
// ErrNotFound through the foreign key.
func (r *TokenRepo) Insert(ctx context.Context, userID uint64, token string, exp time.Time) (model.TokenRecord, error) {
	hash := utils.HashToken(token)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO "+r.table+" (token_hash, user_id, is_used, expiry) VALUES (?,?,0,?)",
		hash, userID, exp.UTC())
	if err != nil {
		return model.TokenRecord{}, translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.TokenRecord{}, err
	}
	return model.TokenRecord{ID: uint64(id), TokenHash: hash, UserID: userID, ExpiresAt: exp.UTC()}, nil
}

// Find returns the record for token or ErrNotFound.
func (r *TokenRepo) Find(ctx context.Context, token string) (model.TokenRecord, error) {
	var rec model.TokenRecord
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, token_hash, user_id, is_used, expiry FROM "+r.table+" WHERE token_hash = ? LIMIT 1",
		utils.HashToken(token)).Scan(&rec.ID, &rec.TokenHash, &rec.UserID, &rec.IsUsed, &rec.ExpiresAt)
	return rec, translate(err)
}

// MarkUsed flips is_used from false to true.  It reports true only for the
// caller that performed the transition; a record already used yields false.
func (r *TokenRepo) MarkUsed(ctx context.Context, token string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE "+r.table+" SET is_used = 1 WHERE token_hash = ? AND is_used = 0", utils.HashToken(token))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	if _, err := r.Find(ctx, token); err != nil {
		return false, err
	}
	return false, nil
}
