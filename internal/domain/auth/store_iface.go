package auth

import (
	"context"
	"time"
)

type StoreAPI interface {
	FindUserByEmail(ctx context.Context, email string) (User, error)
	GetUser(ctx context.Context, userID string) (User, error)
	CreateUser(ctx context.Context, email, displayName, passwordHash, role string) (User, error)
	CreateSession(ctx context.Context, userID, refreshTokenHash string, expires time.Time) error
	UpdateLastLogin(ctx context.Context, userID string) error
	RevokeSession(ctx context.Context, userID, refreshTokenHash string) error
	SessionValid(ctx context.Context, userID, refreshTokenHash string) (bool, error)
	RotateSession(ctx context.Context, userID, oldHash, newHash string, expires time.Time) error
	UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
	CreatePasswordReset(ctx context.Context, userID, tokenHash string, expires time.Time) error
	CompletePasswordReset(ctx context.Context, tokenHash, passwordHash string) (string, error)
}
