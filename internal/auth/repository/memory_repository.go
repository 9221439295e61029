package repository

import (
	"sync"
	"time"

	authdomain "approvalhub-backend/internal/auth/domain"

	"github.com/google/uuid"
)

// memoryUserRepository is an in-memory UserRepository. It backs tests
// and the no-database startup mode.
type memoryUserRepository struct {
	mu     sync.RWMutex
	users  map[string]*authdomain.User
	tokens map[string]*authdomain.RefreshToken
}

// NewMemoryUserRepository creates an empty in-memory UserRepository.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		users:  make(map[string]*authdomain.User),
		tokens: make(map[string]*authdomain.RefreshToken),
	}
}

func (r *memoryUserRepository) Create(user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepository) FindByEmail(email string) (*authdomain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepository) FindByID(id string) (*authdomain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

func (r *memoryUserRepository) Update(user *authdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.UpdatedAt = time.Now()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryUserRepository) SaveRefreshToken(token *authdomain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for key, stored := range r.tokens {
		if stored.UserID == token.UserID && stored.ExpiresAt.Before(now) {
			delete(r.tokens, key)
		}
	}

	clone := *token
	r.tokens[token.Token] = &clone
	return nil
}

func (r *memoryUserRepository) FindRefreshToken(token string) (*authdomain.RefreshToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.tokens[token]
	if !ok {
		return nil, nil
	}
	clone := *stored
	return &clone, nil
}

func (r *memoryUserRepository) DeleteRefreshToken(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, token)
	return nil
}
