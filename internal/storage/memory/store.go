package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/models"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/storage"
)

// Store is an in-memory storage.Storage used by tests and local
// single-process runs.
type Store struct {
	mu       sync.RWMutex
	users    map[int64]models.User
	videos   map[string]models.Video
	sessions map[string]models.Session
	nextID   atomic.Int64
}

func NewStore() *Store {
	return &Store{
		users:    make(map[int64]models.User),
		videos:   make(map[string]models.Video),
		sessions: make(map[string]models.Session),
	}
}

var _ storage.Storage = (*Store)(nil)

func (s *Store) CreateUser(_ context.Context, email, passwordHash, role string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := models.User{
		ID:           s.nextID.Add(1),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	s.users[user.ID] = user
	return &user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (s *Store) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &user, nil
}

func (s *Store) CreateVideo(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.videos[video.ID] = video
	return nil
}

func (s *Store) GetVideo(_ context.Context, id string) (*models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	video, ok := s.videos[id]
	if !ok {
		return nil, storage.ErrVideoNotFound
	}
	return &video, nil
}

func (s *Store) RecordLogin(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.SessionID] = session
	return nil
}

func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

func (s *Store) DeleteAllUserSessions(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

// SessionCount reports live audit rows; used by tests.
func (s *Store) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
