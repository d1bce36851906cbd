package sqlite

import (
	"time"

	"foodtracker/internal/domain"
)

type productModel struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	Name          string    `gorm:"size:100;not null"`
	Weight        float64   `gorm:"not null"`
	Calories      float64   `gorm:"not null"`
	Proteins      float64   `gorm:"not null"`
	Fat           float64   `gorm:"not null"`
	Carbohydrates float64   `gorm:"not null"`
	Image         *string   `gorm:"size:255"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (productModel) TableName() string { return "products" }

func (m productModel) toDomain() domain.Product {
	return domain.Product{
		ID:            m.ID,
		Name:          m.Name,
		Weight:        m.Weight,
		Calories:      m.Calories,
		Proteins:      m.Proteins,
		Fat:           m.Fat,
		Carbohydrates: m.Carbohydrates,
		Image:         m.Image,
		CreatedAt:     m.CreatedAt,
	}
}

type userModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"size:150;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

func (m userModel) toDomain() *domain.User {
	return &domain.User{ID: m.ID, Username: m.Username, PasswordHash: m.PasswordHash, CreatedAt: m.CreatedAt}
}

type sessionModel struct {
	Token     string    `gorm:"primaryKey"`
	UserID    int64     `gorm:"not null;index"`
	UserAgent string    `gorm:"not null;default:''"`
	IP        string    `gorm:"not null;default:''"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

func (sessionModel) TableName() string { return "sessions" }
