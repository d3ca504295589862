package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/models"
)

type Storage struct {
	db *sql.DB
	*UserRepository
	*VideoRepository
	*SessionRepository
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{
		db:                db,
		UserRepository:    NewUserRepository(db),
		VideoRepository:   NewVideoRepository(db),
		SessionRepository: NewSessionRepository(db),
	}
}

// RecordLogin inserts the new session row and sweeps expired rows in the
// same transaction, so the audit table never grows unbounded between
// logins.
func (s *Storage) RecordLogin(ctx context.Context, session models.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	sessionRepoTx := NewSessionRepository(tx)

	if err := sessionRepoTx.DeleteExpiredSessions(ctx); err != nil {
		return fmt.Errorf("failed to sweep expired sessions in tx: %w", err)
	}

	if err := sessionRepoTx.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to create session in tx: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
