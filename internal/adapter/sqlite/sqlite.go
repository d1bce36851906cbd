// Package sqlite implements the domain repositories on a SQLite file using gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"foodtracker/internal/domain"
)

var (
	_ domain.ProductRepository = (*DB)(nil)
	_ domain.UserRepository    = (*DB)(nil)
	_ domain.SessionRepository = (*SessionRepo)(nil)
)

// DB is the SQLite-backed store.
type DB struct {
	gorm *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(path string, log gormlogger.Interface) (*DB, error) {
	if log == nil {
		log = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	g, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: log, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := g.DB()
	if err != nil {
		return nil, err
	}
	// One writer at a time; also keeps a ":memory:" database on one connection.
	sqlDB.SetMaxOpenConns(1)

	if err := g.AutoMigrate(&userModel{}, &sessionModel{}, &productModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{gorm: g}, nil
}

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListProducts returns every product ordered by id.
func (d *DB) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var rows []productModel
	if err := d.gorm.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return toProducts(rows), nil
}

// SearchProducts returns products whose name contains query. instr is
// case-sensitive, unlike LIKE.
func (d *DB) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	var rows []productModel
	err := d.gorm.WithContext(ctx).
		Where("instr(name, ?) > 0", query).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return toProducts(rows), nil
}

func toProducts(rows []productModel) []domain.Product {
	out := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

// GetProduct returns one product or domain.ErrProductNotFound.
func (d *DB) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var row productModel
	if err := d.gorm.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	p := row.toDomain()
	return &p, nil
}

// CreateProduct inserts p and sets its id.
func (d *DB) CreateProduct(ctx context.Context, p *domain.Product) (int64, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	row := productModel{
		Name:          p.Name,
		Weight:        p.Weight,
		Calories:      p.Calories,
		Proteins:      p.Proteins,
		Fat:           p.Fat,
		Carbohydrates: p.Carbohydrates,
		Image:         p.Image,
		CreatedAt:     p.CreatedAt,
	}
	if err := d.gorm.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	p.ID = row.ID
	return row.ID, nil
}

// DeleteProduct removes a product; domain.ErrProductNotFound when absent.
func (d *DB) DeleteProduct(ctx context.Context, id int64) error {
	res := d.gorm.WithContext(ctx).Delete(&productModel{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return d.findUser(ctx, "username = ?", username)
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return d.findUser(ctx, "id = ?", id)
}

func (d *DB) findUser(ctx context.Context, cond string, arg any) (*domain.User, error) {
	var row userModel
	err := d.gorm.WithContext(ctx).Where(cond, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	row := userModel{Username: username, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	err := d.gorm.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, domain.ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return row.toDomain(), nil
}

// Count returns the total number of users.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int64
	err := d.gorm.WithContext(ctx).Model(&userModel{}).Count(&n).Error
	return int(n), err
}

// SessionRepo implements domain.SessionRepository on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	return r.db.gorm.WithContext(ctx).Create(&sessionModel{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}).Error
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var row sessionModel
	err := r.db.gorm.WithContext(ctx).Where("token = ?", token).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		Token:     row.Token,
		UserID:    row.UserID,
		UserAgent: row.UserAgent,
		IP:        row.IP,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	return r.db.gorm.WithContext(ctx).Where("token = ?", token).Delete(&sessionModel{}).Error
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	return r.db.gorm.WithContext(ctx).Where("expires_at < ?", time.Now().UTC()).Delete(&sessionModel{}).Error
}
