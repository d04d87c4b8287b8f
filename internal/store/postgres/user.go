package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"placedir/internal/domain"
)

// UserRepository implements user and user-token persistence per the
// component design: create, update-by-email, delete, lookup by email,
// count, plus the token operations with their atomicity contracts.
type UserRepository struct {
	db *DB
}

// NewUserRepository builds a UserRepository over db.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user row.
func (r *UserRepository) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.Pool.ExecContext(ctx,
		`INSERT INTO app_user (email, password_hash, email_confirmed, role) VALUES ($1,$2,$3,$4)`,
		u.Email, u.PasswordHash, u.EmailConfirmed, int(u.Role))

	return err
}

// UpdateUser updates the row identified by u.Email.
func (r *UserRepository) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := r.db.Pool.ExecContext(ctx,
		`UPDATE app_user SET password_hash=$1, email_confirmed=$2, role=$3 WHERE email=$4`,
		u.PasswordHash, u.EmailConfirmed, int(u.Role), u.Email)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, u.Email)
	}

	return nil
}

// DeleteUser removes the user identified by email.
func (r *UserRepository) DeleteUser(ctx context.Context, email string) error {
	_, err := r.db.Pool.ExecContext(ctx, `DELETE FROM app_user WHERE email=$1`, email)
	return err
}

// FindUserByEmail looks up a user by its normalized email.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User

	var role int

	row := r.db.Pool.QueryRowContext(ctx, `SELECT email, password_hash, email_confirmed, role FROM app_user WHERE email=$1`, email)

	err := row.Scan(&u.Email, &u.PasswordHash, &u.EmailConfirmed, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("%w: user %s", domain.ErrNotFound, email)
	}

	if err != nil {
		return domain.User{}, err
	}

	u.Role = domain.Role(role)

	return u, nil
}

// CountUsers returns the total number of registered users.
func (r *UserRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Pool.QueryRowContext(ctx, `SELECT COUNT(*) FROM app_user`).Scan(&count)

	return count, err
}

// ReplaceUserToken idempotently makes token the sole live token for
// its user: any prior token row for the user is deleted in the same
// transaction before the new one is inserted.
func (r *UserRepository) ReplaceUserToken(ctx context.Context, token domain.UserToken) error {
	return r.db.WithExclusive(ctx, func(ctx context.Context, tx querier) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_token WHERE email=$1`, token.Email); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `INSERT INTO user_token (email, nonce, expires_at) VALUES ($1,$2,$3)`,
			token.Email, token.Nonce, token.ExpiresAt)

		return err
	})
}

// ConsumeUserToken atomically deletes the token matching nonce and
// returns it, failing domain.ErrNotFound if no live token matches.
// The delete-and-return happens inside one transaction so that two
// concurrent calls with the same nonce race on the row lock: exactly
// one observes the row and deletes it, the other observes no rows.
func (r *UserRepository) ConsumeUserToken(ctx context.Context, nonce domain.EmailNonce) (domain.UserToken, error) {
	var tok domain.UserToken

	err := r.db.WithExclusive(ctx, func(ctx context.Context, tx querier) error {
		row := tx.QueryRowContext(ctx,
			`DELETE FROM user_token WHERE email=$1 AND nonce=$2 RETURNING email, nonce, expires_at`,
			nonce.Email, nonce.Nonce)

		err := row.Scan(&tok.Email, &tok.Nonce, &tok.ExpiresAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: token for %s", domain.ErrNotFound, nonce.Email)
		}

		return err
	})

	return tok, err
}

// DiscardExpired deletes every token whose expires_at < before.
func (r *UserRepository) DiscardExpired(ctx context.Context, before int64) (int64, error) {
	res, err := r.db.Pool.ExecContext(ctx, `DELETE FROM user_token WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
