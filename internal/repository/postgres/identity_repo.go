package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/vkorchagin/accountd/internal/errs"
	"github.com/vkorchagin/accountd/internal/model"
)

const identityColumns = `id, email, username, pwd_hash, salt_auth, email_confirmed,
failed_logins, locked_until, refresh_token, refresh_expires_at, created_at`

// IdentityRepo implements IdentityRepository using PostgreSQL. Lockout
// policy (failure threshold and lock window) is repository configuration;
// lockout state lives on the identity row.
type IdentityRepo struct {
	db       *DB
	maxFails int
	lockFor  time.Duration
}

// NewIdentityRepo constructs an identity repository with lockout policy.
func NewIdentityRepo(db *DB, maxFails int, lockFor time.Duration) *IdentityRepo {
	if maxFails <= 0 {
		maxFails = 5
	}
	if lockFor <= 0 {
		lockFor = 15 * time.Minute
	}
	return &IdentityRepo{db: db, maxFails: maxFails, lockFor: lockFor}
}

// Create inserts a new identity row.
func (r *IdentityRepo) Create(ctx context.Context, ident *model.Identity) error {
	const q = `
INSERT INTO identities (id, email, username, pwd_hash, salt_auth, email_confirmed)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q,
		ident.ID, ident.Email, ident.Username, ident.PwdHash, ident.SaltAuth, ident.EmailConfirmed)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

func (r *IdentityRepo) getBy(ctx context.Context, where string, arg any) (*model.Identity, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE `+where, arg)
	var i model.Identity
	if err := row.Scan(&i.ID, &i.Email, &i.Username, &i.PwdHash, &i.SaltAuth, &i.EmailConfirmed,
		&i.FailedLogins, &i.LockedUntil, &i.RefreshToken, &i.RefreshExpiresAt, &i.CreatedAt); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, errs.ErrNotFound
	}
	return &i, nil
}

// GetByID selects an identity by id.
func (r *IdentityRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Identity, error) {
	return r.getBy(ctx, `id=$1`, id)
}

// GetByEmail selects an identity by email.
func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	return r.getBy(ctx, `email=$1`, email)
}

// GetByUsername selects an identity by username.
func (r *IdentityRepo) GetByUsername(ctx context.Context, username string) (*model.Identity, error) {
	return r.getBy(ctx, `username=$1`, username)
}

// GetByRefreshToken selects an identity by its current refresh token value.
func (r *IdentityRepo) GetByRefreshToken(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, errs.ErrNotFound
	}
	return r.getBy(ctx, `refresh_token=$1`, token)
}

// EmailExists probes for an identity with the given email.
func (r *IdentityRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM identities WHERE email=$1)`, email)
}

// UsernameExists probes for an identity with the given username.
func (r *IdentityRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM identities WHERE username=$1)`, username)
}

func (r *IdentityRepo) exists(ctx context.Context, q string, arg any) (bool, error) {
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, arg).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Delete removes the identity row.
func (r *IdentityRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM identities WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// RecordLoginFailure increments the failure counter; once the threshold is
// reached the row is locked until a future time. A failure after an expired
// lock starts a fresh count, so one wrong attempt never re-locks the row.
func (r *IdentityRepo) RecordLoginFailure(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `
UPDATE identities SET
    failed_logins = CASE WHEN locked_until > 'epoch' AND locked_until <= now()
        THEN 1 ELSE failed_logins + 1 END,
    locked_until = CASE WHEN locked_until <= now() THEN 'epoch' ELSE locked_until END
WHERE id=$1
RETURNING failed_logins`
	var fails int
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&fails); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, errs.ErrNotFound
		}
		return false, err
	}
	if fails >= r.maxFails {
		lockUntil := time.Now().Add(r.lockFor)
		const upd = `UPDATE identities SET locked_until=$2 WHERE id=$1`
		if _, err := r.db.Pool.Exec(ctx, upd, id, lockUntil); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// ResetLoginFailures clears the counter and any lock after a success.
func (r *IdentityRepo) ResetLoginFailures(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE identities SET failed_logins=0, locked_until='epoch' WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}

// SetPassword replaces the password hash and salt.
func (r *IdentityRepo) SetPassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error {
	const q = `UPDATE identities SET pwd_hash=$2, salt_auth=$3 WHERE id=$1`
	return r.exec(ctx, q, id, hash, salt)
}

// SetEmailUsername updates both sign-in identifiers in one statement.
func (r *IdentityRepo) SetEmailUsername(ctx context.Context, id uuid.UUID, email, username string) error {
	const q = `UPDATE identities SET email=$2, username=$3 WHERE id=$1`
	err := r.exec(ctx, q, id, email, username)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// SetEmailConfirmed flips the confirmation flag.
func (r *IdentityRepo) SetEmailConfirmed(ctx context.Context, id uuid.UUID, confirmed bool) error {
	const q = `UPDATE identities SET email_confirmed=$2 WHERE id=$1`
	return r.exec(ctx, q, id, confirmed)
}

// SetRefreshToken persists a rotated refresh token value and expiry.
func (r *IdentityRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	const q = `UPDATE identities SET refresh_token=$2, refresh_expires_at=$3 WHERE id=$1`
	return r.exec(ctx, q, id, token, expiresAt)
}

func (r *IdentityRepo) exec(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
