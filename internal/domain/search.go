package domain

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidFilename is returned by an ImageStore when nothing usable is
// left of an uploaded filename.
var ErrInvalidFilename = errors.New("invalid image filename")

// DefaultImageURL is shown for products without an image.
const DefaultImageURL = "/static/default_image.png"

// Result sources.
const (
	SourceLocal    = "local"
	SourceExternal = "external"
)

// SearchResult is one display row produced by a search. Every numeric
// field is already formatted text with one decimal, or "N/A".
type SearchResult struct {
	Name                 string `json:"name"`
	Weight               string `json:"weight"`
	CaloriesPer100g      string `json:"caloriesPer100g"`
	ProteinsPer100g      string `json:"proteinsPer100g"`
	FatPer100g           string `json:"fatPer100g"`
	CarbohydratesPer100g string `json:"carbohydratesPer100g"`
	TotalCalories        string `json:"totalCalories"`
	TotalProteins        string `json:"totalProteins"`
	TotalFat             string `json:"totalFat"`
	TotalCarbohydrates   string `json:"totalCarbohydrates"`
	ImageURL             string `json:"imageUrl"`
	Source               string `json:"source"`
}

// ExternalProduct is a product as reported by the external food database.
// Quantity and nutriments keep whatever the upstream sent (number, numeric
// text, or nil when absent).
type ExternalProduct struct {
	Name              string
	Quantity          any
	ImageURL          string
	EnergyKcal100g    any
	Proteins100g      any
	Fat100g           any
	Carbohydrates100g any
}

// FoodDatabase is the port for the external food database lookup.
type FoodDatabase interface {
	Search(ctx context.Context, query string, pageSize int) ([]ExternalProduct, error)
}

// ImageStore persists uploaded product images and returns the reference to
// store on the product. Delete takes a reference returned by Save; an
// already missing image is not an error.
type ImageStore interface {
	Save(ctx context.Context, filename string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}
