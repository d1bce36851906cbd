package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"foodtracker/internal/domain"
	"foodtracker/internal/metrics"
)

// DefaultPageSize is how many external results a search asks for.
const DefaultPageSize = 10

// SearchService merges matches from the local catalog with products from
// the external food database.
type SearchService struct {
	repo     domain.ProductRepository
	foods    domain.FoodDatabase
	pageSize int
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewSearchService creates a SearchService. foods may be nil to search the
// local catalog only; pageSize <= 0 means DefaultPageSize.
func NewSearchService(repo domain.ProductRepository, foods domain.FoodDatabase, pageSize int, log *zap.Logger, m *metrics.Metrics) *SearchService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SearchService{
		repo:     repo,
		foods:    foods,
		pageSize: pageSize,
		log:      log.Named("search"),
		metrics:  m,
	}
}

// Search returns local matches followed by external matches. A failing
// external lookup yields local results only; a failing local store is an
// error. pageSize <= 0 uses the service default.
func (s *SearchService) Search(ctx context.Context, query string, pageSize int) ([]domain.SearchResult, error) {
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	products, err := s.repo.SearchProducts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search local products: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(products)+pageSize)
	for _, p := range products {
		results = append(results, localResult(p))
	}
	local := len(results)

	for _, ep := range s.external(ctx, query, pageSize) {
		results = append(results, externalResult(ep))
	}

	s.metrics.ObserveSearch(local, len(results)-local)
	s.log.Debug("search completed",
		zap.String("query", query),
		zap.Int("local", local),
		zap.Int("external", len(results)-local),
	)
	return results, nil
}

func (s *SearchService) external(ctx context.Context, query string, pageSize int) []domain.ExternalProduct {
	if s.foods == nil {
		return nil
	}
	found, err := s.foods.Search(ctx, query, pageSize)
	if err != nil {
		s.log.Warn("food database lookup failed",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}
	return found
}

func localResult(p domain.Product) domain.SearchResult {
	return domain.SearchResult{
		Name:                 p.Name,
		Weight:               domain.FormatWeight(p.Weight),
		CaloriesPer100g:      domain.Per100g(p.Calories, p.Weight),
		ProteinsPer100g:      domain.Per100g(p.Proteins, p.Weight),
		FatPer100g:           domain.Per100g(p.Fat, p.Weight),
		CarbohydratesPer100g: domain.Per100g(p.Carbohydrates, p.Weight),
		TotalCalories:        domain.FormatValue(p.Calories),
		TotalProteins:        domain.FormatValue(p.Proteins),
		TotalFat:             domain.FormatValue(p.Fat),
		TotalCarbohydrates:   domain.FormatValue(p.Carbohydrates),
		ImageURL:             p.ImageURL(),
		Source:               domain.SourceLocal,
	}
}

func externalResult(ep domain.ExternalProduct) domain.SearchResult {
	image := ep.ImageURL
	if image == "" {
		image = domain.DefaultImageURL
	}
	return domain.SearchResult{
		Name:                 ep.Name,
		Weight:               domain.QuantityText(ep.Quantity),
		CaloriesPer100g:      domain.FormatValue(ep.EnergyKcal100g),
		ProteinsPer100g:      domain.FormatValue(ep.Proteins100g),
		FatPer100g:           domain.FormatValue(ep.Fat100g),
		CarbohydratesPer100g: domain.FormatValue(ep.Carbohydrates100g),
		TotalCalories:        domain.CalculateTotalNutrient(ep.EnergyKcal100g, ep.Quantity),
		TotalProteins:        domain.CalculateTotalNutrient(ep.Proteins100g, ep.Quantity),
		TotalFat:             domain.CalculateTotalNutrient(ep.Fat100g, ep.Quantity),
		TotalCarbohydrates:   domain.CalculateTotalNutrient(ep.Carbohydrates100g, ep.Quantity),
		ImageURL:             image,
		Source:               domain.SourceExternal,
	}
}
