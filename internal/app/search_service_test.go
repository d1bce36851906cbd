package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"foodtracker/internal/app"
	"foodtracker/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestSearch_MergesLocalThenExternal(t *testing.T) {
	repo := &mockProductRepo{
		searchFn: func(_ context.Context, query string) ([]domain.Product, error) {
			if query != "Banan" {
				t.Errorf("query = %q", query)
			}
			return []domain.Product{
				{ID: 1, Name: "Banana", Weight: 120, Calories: 118.92, Proteins: 1.32, Fat: 0.36, Carbohydrates: 27.6},
				{ID: 2, Name: "Bananbrød", Weight: 50, Calories: 100, Image: strPtr("static/uploads/brod.png")},
			}, nil
		},
	}
	foods := &mockFoodDB{
		searchFn: func(_ context.Context, query string, pageSize int) ([]domain.ExternalProduct, error) {
			if pageSize != 10 {
				t.Errorf("pageSize = %d; want 10", pageSize)
			}
			return []domain.ExternalProduct{
				{
					Name:              "Banan Chips",
					Quantity:          json.Number("150"),
					ImageURL:          "https://images.example/chips.jpg",
					EnergyKcal100g:    json.Number("519"),
					Proteins100g:      json.Number("2.3"),
					Fat100g:           33.6,
					Carbohydrates100g: "58.4",
				},
				{Name: "N/A", Quantity: nil},
			}, nil
		},
	}
	svc := app.NewSearchService(repo, foods, 0, nil, nil)

	got, err := svc.Search(context.Background(), "Banan", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("len = %d; want 4", len(got))
	}

	want := []domain.SearchResult{
		{
			Name: "Banana", Weight: "120.0",
			CaloriesPer100g: "99.1", ProteinsPer100g: "1.1", FatPer100g: "0.3", CarbohydratesPer100g: "23.0",
			TotalCalories: "118.9", TotalProteins: "1.3", TotalFat: "0.4", TotalCarbohydrates: "27.6",
			ImageURL: domain.DefaultImageURL, Source: domain.SourceLocal,
		},
		{
			Name: "Bananbrød", Weight: "50.0",
			CaloriesPer100g: "200.0", ProteinsPer100g: "0.0", FatPer100g: "0.0", CarbohydratesPer100g: "0.0",
			TotalCalories: "100.0", TotalProteins: "0.0", TotalFat: "0.0", TotalCarbohydrates: "0.0",
			ImageURL: "static/uploads/brod.png", Source: domain.SourceLocal,
		},
		{
			Name: "Banan Chips", Weight: "150",
			CaloriesPer100g: "519.0", ProteinsPer100g: "2.3", FatPer100g: "33.6", CarbohydratesPer100g: "58.4",
			TotalCalories: "778.5", TotalProteins: "3.5", TotalFat: "50.4", TotalCarbohydrates: "87.6",
			ImageURL: "https://images.example/chips.jpg", Source: domain.SourceExternal,
		},
		{
			Name: "N/A", Weight: "N/A",
			CaloriesPer100g: "N/A", ProteinsPer100g: "N/A", FatPer100g: "N/A", CarbohydratesPer100g: "N/A",
			TotalCalories: "N/A", TotalProteins: "N/A", TotalFat: "N/A", TotalCarbohydrates: "N/A",
			ImageURL: domain.DefaultImageURL, Source: domain.SourceExternal,
		},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d:\n got  %+v\n want %+v", i, got[i], want[i])
		}
	}
}

func TestSearch_ExternalFailureKeepsLocalResults(t *testing.T) {
	repo := &mockProductRepo{
		searchFn: func(context.Context, string) ([]domain.Product, error) {
			return []domain.Product{{ID: 1, Name: "Apple", Weight: 100, Calories: 52}}, nil
		},
	}
	foods := &mockFoodDB{
		searchFn: func(context.Context, string, int) ([]domain.ExternalProduct, error) {
			return nil, errors.New("unexpected status 503")
		},
	}
	core, logs := observer.New(zapcore.WarnLevel)
	svc := app.NewSearchService(repo, foods, 10, zap.New(core), nil)

	got, err := svc.Search(context.Background(), "Apple", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Source != domain.SourceLocal {
		t.Errorf("got %+v; want the single local result", got)
	}
	if logs.FilterMessage("food database lookup failed").Len() != 1 {
		t.Error("expected a warning about the failed lookup")
	}
}

func TestSearch_LocalFailureIsAnError(t *testing.T) {
	repo := &mockProductRepo{
		searchFn: func(context.Context, string) ([]domain.Product, error) {
			return nil, errors.New("db down")
		},
	}
	foods := &mockFoodDB{
		searchFn: func(context.Context, string, int) ([]domain.ExternalProduct, error) {
			t.Error("external lookup should not run when the local store fails")
			return nil, nil
		},
	}
	svc := app.NewSearchService(repo, foods, 10, nil, nil)

	if _, err := svc.Search(context.Background(), "x", 0); err == nil {
		t.Error("expected error")
	}
}

func TestSearch_PageSize(t *testing.T) {
	var gotSize int
	foods := &mockFoodDB{
		searchFn: func(_ context.Context, _ string, pageSize int) ([]domain.ExternalProduct, error) {
			gotSize = pageSize
			return nil, nil
		},
	}
	svc := app.NewSearchService(&mockProductRepo{}, foods, 25, nil, nil)

	if _, err := svc.Search(context.Background(), "x", 0); err != nil {
		t.Fatal(err)
	}
	if gotSize != 25 {
		t.Errorf("default pageSize = %d; want 25", gotSize)
	}
	if _, err := svc.Search(context.Background(), "x", 3); err != nil {
		t.Fatal(err)
	}
	if gotSize != 3 {
		t.Errorf("explicit pageSize = %d; want 3", gotSize)
	}
}

func TestSearch_WithoutFoodDatabase(t *testing.T) {
	repo := &mockProductRepo{
		searchFn: func(context.Context, string) ([]domain.Product, error) {
			return []domain.Product{{ID: 1, Name: "Rice", Weight: 0, Calories: 10}}, nil
		},
	}
	svc := app.NewSearchService(repo, nil, 0, nil, nil)

	got, err := svc.Search(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d; want 1", len(got))
	}
	if got[0].CaloriesPer100g != "N/A" || got[0].TotalCalories != "10.0" || got[0].Weight != "0.0" {
		t.Errorf("zero-weight row = %+v", got[0])
	}
}
