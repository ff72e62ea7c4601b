package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrResetTokenUnused = errors.New("reset token invalid or expired")
	ErrSessionGone      = errors.New("session expired or revoked")
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const userColumns = `id, email, display_name, role, status, password_hash, mfa_enabled, mfa_secret_enc, last_login, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &u.Status, &u.PasswordHash, &u.MFAEnabled, &u.MFASecretEnc, &u.LastLogin, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
}

func (s *Store) GetUser(ctx context.Context, userID string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

func (s *Store) CreateUser(ctx context.Context, email, displayName, passwordHash, role string) (User, error) {
	u, err := scanUser(s.DB.QueryRow(ctx, `
    INSERT INTO users (email, display_name, password_hash, role)
    VALUES ($1,$2,$3,$4)
    RETURNING `+userColumns,
		strings.ToLower(email), displayName, passwordHash, role))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return User{}, ErrEmailTaken
	}
	return u, err
}

func (s *Store) CreateSession(ctx context.Context, userID, refreshTokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO sessions (user_id, refresh_token, expires_at)
    VALUES ($1,$2,$3)
  `, userID, refreshTokenHash, expires)
	return err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

func (s *Store) RevokeSession(ctx context.Context, userID, refreshTokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND refresh_token = $2", userID, refreshTokenHash)
	return err
}

const liveSession = `user_id = $1 AND refresh_token = $2 AND expires_at > now() AND revoked_at IS NULL`

func (s *Store) SessionValid(ctx context.Context, userID, refreshTokenHash string) (bool, error) {
	var ok bool
	err := s.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE `+liveSession+`)`, userID, refreshTokenHash).Scan(&ok)
	return ok, err
}

// RotateSession swaps the session's token hash. A session revoked or expired
// since it was checked yields ErrSessionGone.
func (s *Store) RotateSession(ctx context.Context, userID, oldHash, newHash string, expires time.Time) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE sessions
    SET refresh_token = $3, expires_at = $4, rotated_at = now()
    WHERE `+liveSession, userID, oldHash, newHash, expires)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionGone
	}
	return nil
}

// UpdateMFASecret stores a pending secret. It never touches an account with
// MFA already on; that case is ErrMFAAlreadyEnabled.
func (s *Store) UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE users SET mfa_secret_enc = $1 WHERE id = $2 AND NOT mfa_enabled
  `, secretEnc, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMFAAlreadyEnabled
	}
	return nil
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET mfa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}

func (s *Store) CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, "INSERT INTO password_resets (user_id, token, expires_at) VALUES ($1, $2, $3)", userID, tokenHash, expires)
	return err
}

// CompletePasswordReset consumes the token and sets the new hash atomically.
func (s *Store) CompletePasswordReset(ctx context.Context, tokenHash, passwordHash string) (string, error) {
	var userID string
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
      UPDATE password_resets
      SET used_at = now()
      WHERE token = $1 AND expires_at > now() AND used_at IS NULL
      RETURNING user_id
    `, tokenHash).Scan(&userID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrResetTokenUnused
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, userID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, "UPDATE sessions SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL", userID)
		return err
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}
