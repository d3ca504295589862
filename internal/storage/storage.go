package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrVideoNotFound = errors.New("video not found")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Storage interface {
	UserRepository
	VideoRepository
	SessionRepository
}

type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateUser(ctx context.Context, email, passwordHash, role string) (*models.User, error)
}

type VideoRepository interface {
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	CreateVideo(ctx context.Context, video models.Video) error
}

type SessionRepository interface {
	RecordLogin(ctx context.Context, session models.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteAllUserSessions(ctx context.Context, userID int64) error
}

// TokenBlacklist is the revocation set for raw token strings. The
// in-memory implementation is process-local; the Redis one is shared
// across instances. Call sites must not assume either.
type TokenBlacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// GatewayKeyMaterial is the hashed gateway key state. A zero CurrentHash
// means no key has been installed yet.
type GatewayKeyMaterial struct {
	CurrentHash  string
	PreviousHash string
	RotatedAt    time.Time
}

// GatewayKeyStore persists the gateway key material so a rotation is
// visible to every instance. The grace window for the previous key is
// enforced by the caller from RotatedAt; grace is passed to Rotate only
// so shared stores can bound the previous entry's lifetime.
type GatewayKeyStore interface {
	Material(ctx context.Context) (*GatewayKeyMaterial, error)
	Install(ctx context.Context, currentHash string, rotatedAt time.Time) error
	Rotate(ctx context.Context, newHash, previousHash string, rotatedAt time.Time, grace time.Duration) error
}
