package app

import (
	"context"
	"time"

	"foodtracker/internal/domain"
)

// TotalsService aggregates nutrients over the saved catalog.
type TotalsService struct {
	repo domain.ProductRepository
	now  func() time.Time
}

// NewTotalsService creates a TotalsService backed by the given repository.
func NewTotalsService(repo domain.ProductRepository) *TotalsService {
	return &TotalsService{repo: repo, now: time.Now}
}

// Summary is the home page header: today's local date and the catalog totals.
type Summary struct {
	Date   string                `json:"date"`
	Totals domain.NutrientTotals `json:"totals"`
}

// Totals sums the stored absolute nutrients of every product.
func (s *TotalsService) Totals(ctx context.Context) (domain.NutrientTotals, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.NutrientTotals{}, err
	}
	var t domain.NutrientTotals
	for _, p := range products {
		t.Count++
		t.Weight += p.Weight
		t.Calories += p.Calories
		t.Proteins += p.Proteins
		t.Fat += p.Fat
		t.Carbohydrates += p.Carbohydrates
	}
	return t, nil
}

// Today returns the totals together with today's date (YYYY-MM-DD, local time).
func (s *TotalsService) Today(ctx context.Context) (Summary, error) {
	t, err := s.Totals(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Date:   s.now().In(time.Local).Format("2006-01-02"),
		Totals: t,
	}, nil
}
