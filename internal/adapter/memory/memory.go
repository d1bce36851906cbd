// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"foodtracker/internal/domain"
)

// DB keeps products, users and sessions in process memory.
type DB struct {
	mu       sync.Mutex
	products []domain.Product
	users    map[int64]domain.User
	byName   map[string]int64
	sessions map[string]domain.Session

	lastProductID int64
	lastUserID    int64
}

// New returns an empty store.
func New() *DB {
	return &DB{
		users:    make(map[int64]domain.User),
		byName:   make(map[string]int64),
		sessions: make(map[string]domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.ProductRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- ProductRepository ---

// ListProducts returns copies of every product in insertion order.
func (db *DB) ListProducts(ctx context.Context) ([]domain.Product, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.Product, len(db.products))
	copy(out, db.products)
	return out, nil
}

// SearchProducts returns products whose name contains query, case-sensitively.
func (db *DB) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := []domain.Product{}
	for _, p := range db.products {
		if strings.Contains(p.Name, query) {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetProduct returns a copy of one product.
func (db *DB) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, p := range db.products {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

// CreateProduct stores a copy of p and assigns its id.
func (db *DB) CreateProduct(ctx context.Context, p *domain.Product) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.lastProductID++
	p.ID = db.lastProductID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	db.products = append(db.products, *p)
	return p.ID, nil
}

// DeleteProduct removes a product by id.
func (db *DB) DeleteProduct(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, p := range db.products {
		if p.ID == id {
			db.products = append(db.products[:i], db.products[i+1:]...)
			return nil
		}
	}
	return domain.ErrProductNotFound
}

// --- UserRepository ---

// GetByUsername returns a copy of the named user, or nil.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	id, ok := db.byName[username]
	if !ok {
		return nil, nil
	}
	u := db.users[id]
	return &u, nil
}

// GetByID returns a copy of the user with id, or nil.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// Create adds a user. Usernames are unique.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, taken := db.byName[username]; taken {
		return nil, domain.ErrUsernameTaken
	}
	db.lastUserID++
	u := domain.User{
		ID:           db.lastUserID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users[u.ID] = u
	db.byName[username] = u.ID
	return &u, nil
}

// Count reports how many users exist.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- SessionRepository ---

// SessionRepo stores sessions alongside the users of a DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo returns the session view of db.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create records a session for userID.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = domain.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken returns a copy of the session, or nil. Expiry is left to the caller.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[token]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Delete removes a session; unknown tokens are ignored.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired purges sessions whose expiry has passed.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := time.Now()
	for token, s := range r.db.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.db.sessions, token)
		}
	}
	return nil
}

// Ping always succeeds.
func (db *DB) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (db *DB) Close() error { return nil }
