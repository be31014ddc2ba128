package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo tracks refresh sessions in the refresh_tokens table, one row
// per issued token.  Only SHA-256 hashes are stored (callers hash the raw
// value with utils.HashRefreshRaw before any call here), so a leaked
// table cannot be replayed against the API.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Save opens a session for the user.
func (r *TokenRepo) Save(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, hash, exp)
	return err
}

// Redeem resolves a live session to its owner.  Unknown, revoked and
// expired hashes all come back as ErrTokenInvalid.
func (r *TokenRepo) Redeem(ctx context.Context, hash string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM refresh_tokens WHERE token_hash=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP() LIMIT 1",
		hash).Scan(&userID)
	if err == sql.ErrNoRows {
		return 0, ErrTokenInvalid
	}
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// Rotate retires the presented session and records its replacement in a
// single transaction, so a crash between the two steps cannot leave both
// tokens usable.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash string, userID uint64, newHash string, exp time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		oldHash); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, newHash, exp); err != nil {
		return err
	}
	return tx.Commit()
}

// Revoke closes a single session.
func (r *TokenRepo) Revoke(ctx context.Context, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		hash)
	return err
}

// RevokeAll closes every live session for the user.  Backs the
// bearer-token logout, which signs the caller out everywhere.
func (r *TokenRepo) RevokeAll(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}
