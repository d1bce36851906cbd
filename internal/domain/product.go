package domain

import (
	"context"
	"errors"
	"time"
)

// ErrProductNotFound is returned when a product id does not exist in the catalog.
var ErrProductNotFound = errors.New("product not found")

// Product is a food item saved in the local catalog. Nutrient fields hold
// absolute amounts for the stored Weight, not per-100 g values.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Weight        float64   `json:"weight"`
	Calories      float64   `json:"calories"`
	Proteins      float64   `json:"proteins"`
	Fat           float64   `json:"fat"`
	Carbohydrates float64   `json:"carbohydrates"`
	Image         *string   `json:"image"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ImageURL returns the stored image reference or the placeholder image.
func (p Product) ImageURL() string {
	if p.Image == nil || *p.Image == "" {
		return DefaultImageURL
	}
	return *p.Image
}

// ProductRepository is the port for the local product catalog.
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) (int64, error)
	DeleteProduct(ctx context.Context, id int64) error
	// SearchProducts returns products whose name contains query as a
	// case-sensitive substring, ordered by id.
	SearchProducts(ctx context.Context, query string) ([]Product, error)
}

// NutrientTotals is the sum of every stored product's absolute nutrients.
type NutrientTotals struct {
	Count         int     `json:"count"`
	Weight        float64 `json:"weight"`
	Calories      float64 `json:"calories"`
	Proteins      float64 `json:"proteins"`
	Fat           float64 `json:"fat"`
	Carbohydrates float64 `json:"carbohydrates"`
}
