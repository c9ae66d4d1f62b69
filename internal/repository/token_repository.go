package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo persists opaque credentials: API refresh tokens and browser
// session ids. Both live in auth_tokens and are told apart by kind.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a token hash row.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, kind, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO auth_tokens (user_id, kind, token_hash, expires_at) VALUES (?,?,?,?)",
		userID, kind, tokenHash, exp.UTC())
	return err
}

// Validate returns the owning user id if a non-revoked, non-expired token of
// the given kind exists. Otherwise it returns ErrTokenInvalid.
func (r *TokenRepo) Validate(ctx context.Context, kind, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM auth_tokens WHERE token_hash=? AND kind=? LIMIT 1",
		tokenHash, kind).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTokenInvalid
		}
		return 0, err
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return 0, ErrTokenInvalid
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE auth_tokens SET revoked_at=UTC_TIMESTAMP(6) WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes all of a user's active tokens of one kind.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64, kind string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE auth_tokens SET revoked_at=UTC_TIMESTAMP(6) WHERE user_id=? AND kind=? AND revoked_at IS NULL",
		userID, kind)
	return err
}

// DeleteExpired removes tokens that expired before cutoff.
func (r *TokenRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM auth_tokens WHERE expires_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
