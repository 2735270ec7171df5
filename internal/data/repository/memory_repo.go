package repository

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"otp-auth/internal/data/entity"

	"github.com/google/uuid"
)

// In-memory implementations for local runs and tests. Every method copies on
// the way in and out so callers never share state with the store.

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]entity.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[uuid.UUID]entity.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email && u.DeletedAt == nil {
			return fmt.Errorf("create user %s: duplicate email", user.Email)
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, nil
	}
	return &u, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email entity.Email) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email && u.DeletedAt == nil {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) FindAll(_ context.Context, limit, offset int) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]entity.User, 0, len(r.users))
	for _, u := range r.users {
		if u.DeletedAt == nil {
			active = append(active, u)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].ID.String() < active[j].ID.String()
		}
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})

	users := make([]*entity.User, 0, limit)
	for i := offset; i < len(active) && len(users) < limit; i++ {
		u := active[i]
		users = append(users, &u)
	}
	return users, nil
}

func (r *MemoryUserRepository) CountAll(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, u := range r.users {
		if u.DeletedAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok || existing.DeletedAt != nil {
		return fmt.Errorf("update user %s: %w", user.ID, ErrNotFound)
	}
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return fmt.Errorf("delete user %s: %w", id, ErrNotFound)
	}
	now := time.Now()
	u.DeletedAt = &now
	r.users[id] = u
	return nil
}

type MemoryLoginAttemptRepository struct {
	mu       sync.Mutex
	attempts map[entity.Email]*entity.LoginAttempt
	// versions survive deletes so a replaced attempt never reuses a version.
	versions map[entity.Email]int64
}

func NewMemoryLoginAttemptRepository() *MemoryLoginAttemptRepository {
	return &MemoryLoginAttemptRepository{
		attempts: make(map[entity.Email]*entity.LoginAttempt),
		versions: make(map[entity.Email]int64),
	}
}

func (r *MemoryLoginAttemptRepository) Save(_ context.Context, attempt *entity.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if attempt.Version != 0 {
		stored, ok := r.attempts[attempt.Email]
		if !ok || stored.ID != attempt.ID || stored.Version != attempt.Version {
			return ErrStaleVersion
		}
	}

	r.versions[attempt.Email]++
	attempt.Version = r.versions[attempt.Email]
	r.attempts[attempt.Email] = attempt.Clone()
	return nil
}

func (r *MemoryLoginAttemptRepository) FindByEmail(_ context.Context, email entity.Email) (*entity.LoginAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.attempts[email]
	if !ok {
		return nil, nil
	}
	return stored.Clone(), nil
}

func (r *MemoryLoginAttemptRepository) DeleteByEmail(_ context.Context, email entity.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.attempts, email)
	return nil
}

func (r *MemoryLoginAttemptRepository) Consume(_ context.Context, attempt *entity.LoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.attempts[attempt.Email]
	if !ok || stored.ID != attempt.ID || stored.Version != attempt.Version {
		return ErrStaleVersion
	}
	delete(r.attempts, attempt.Email)
	return nil
}

type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.Session
	byToken  map[string]uuid.UUID
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[uuid.UUID]*entity.Session),
		byToken:  make(map[string]uuid.UUID),
	}
}

func tokenKey(hash []byte) string {
	return hex.EncodeToString(hash)
}

func (r *MemorySessionRepository) Save(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.sessions[session.ID]
	if session.Version == 0 {
		if exists {
			return fmt.Errorf("create session %s: duplicate id", session.ID)
		}
	} else {
		if !exists || stored.Version != session.Version {
			return ErrStaleVersion
		}
		delete(r.byToken, tokenKey(stored.TokenHash))
	}

	session.Version++
	saved := session.Clone()
	saved.RefreshToken = ""
	r.sessions[session.ID] = saved
	r.byToken[tokenKey(session.TokenHash)] = session.ID
	return nil
}

func (r *MemorySessionRepository) FindByRefreshToken(_ context.Context, token entity.RefreshToken) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byToken[tokenKey(token.Digest())]
	if !ok {
		return nil, nil
	}
	session := r.sessions[id].Clone()
	session.RefreshToken = token
	return session, nil
}

func (r *MemorySessionRepository) FindByUserID(_ context.Context, userID uuid.UUID) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var newest *entity.Session
	for _, s := range r.sessions {
		if s.UserID == userID && (newest == nil || s.CreatedAt.After(newest.CreatedAt)) {
			newest = s
		}
	}
	if newest == nil {
		return nil, nil
	}
	return newest.Clone(), nil
}

func (r *MemorySessionRepository) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.byToken, tokenKey(s.TokenHash))
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *MemorySessionRepository) DeleteByRefreshToken(_ context.Context, token entity.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tokenKey(token.Digest())
	if id, ok := r.byToken[key]; ok {
		delete(r.sessions, id)
		delete(r.byToken, key)
	}
	return nil
}

type MemoryHealthRepository struct {
	mu     sync.Mutex
	health *entity.Health
}

func NewMemoryHealthRepository() *MemoryHealthRepository {
	return &MemoryHealthRepository{}
}

func (r *MemoryHealthRepository) Find(_ context.Context) (*entity.Health, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.health == nil {
		return nil, nil
	}
	h := *r.health
	return &h, nil
}

func (r *MemoryHealthRepository) Save(_ context.Context, health *entity.Health) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := *health
	r.health = &h
	return nil
}

func (r *MemoryHealthRepository) Ping(_ context.Context) error {
	return nil
}
