package domain_test

import (
	"encoding/json"
	"math"
	"testing"

	"foodtracker/internal/domain"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"float", 3.14159, "3.1"},
		{"half rounds to even", 2.25, "2.2"},
		{"int", 5, "5.0"},
		{"int64", int64(-12), "-12.0"},
		{"float32", float32(0.5), "0.5"},
		{"numeric text", "  4.56 ", "4.6"},
		{"json number", json.Number("7.26"), "7.3"},
		{"bool", true, "1.0"},
		{"nil", nil, "N/A"},
		{"empty text", "", "N/A"},
		{"non-numeric text", "abc", "N/A"},
		{"hex text", "0x10", "N/A"},
		{"nan", math.NaN(), "N/A"},
		{"inf", math.Inf(1), "N/A"},
		{"nan text", "nan", "N/A"},
		{"unsupported type", []int{1}, "N/A"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.FormatValue(tc.in); got != tc.want {
				t.Errorf("FormatValue(%v) = %q; want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCalculateTotalNutrient(t *testing.T) {
	tests := []struct {
		name    string
		per100g any
		weight  any
		want    string
	}{
		{"numbers", 10.0, 250.0, "25.0"},
		{"mixed kinds", json.Number("20"), "150", "30.0"},
		{"missing per100g", nil, 100.0, "N/A"},
		{"missing weight", 5.0, nil, "N/A"},
		{"non-numeric weight", 5.0, "N/A", "N/A"},
		{"non-numeric per100g", "x", 100.0, "N/A"},
		{"zero weight", 12.0, 0, "0.0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.CalculateTotalNutrient(tc.per100g, tc.weight); got != tc.want {
				t.Errorf("CalculateTotalNutrient(%v, %v) = %q; want %q", tc.per100g, tc.weight, got, tc.want)
			}
		})
	}
}

func TestPer100g(t *testing.T) {
	if got := domain.Per100g(1.32, 120); got != "1.1" {
		t.Errorf("Per100g(1.32, 120) = %q; want 1.1", got)
	}
	if got := domain.Per100g(5, 0); got != "N/A" {
		t.Errorf("zero weight: got %q; want N/A", got)
	}
	if got := domain.Per100g(5, -10); got != "N/A" {
		t.Errorf("negative weight: got %q; want N/A", got)
	}
}

func TestNutrientsFromPer100g_Banana(t *testing.T) {
	got := domain.NutrientsFromPer100g(domain.Macros{Proteins: 1.1, Fat: 0.3, Carbohydrates: 23}, 120)

	checks := []struct {
		field string
		value float64
		want  string
	}{
		{"proteins", got.Proteins, "1.3"},
		{"fat", got.Fat, "0.4"},
		{"carbohydrates", got.Carbohydrates, "27.6"},
		{"calories", got.Calories, "118.9"},
	}
	for _, c := range checks {
		if s := domain.FormatValue(c.value); s != c.want {
			t.Errorf("%s = %s; want %s", c.field, s, c.want)
		}
	}
}

func TestNutrientsFromPer100g_IgnoresEnteredCalories(t *testing.T) {
	got := domain.NutrientsFromPer100g(domain.Macros{Calories: 999, Proteins: 10}, 100)
	if got.Calories != 40 {
		t.Errorf("Calories = %v; want 40", got.Calories)
	}
}

func TestPer100gRoundTrip(t *testing.T) {
	totals := domain.NutrientsFromPer100g(domain.Macros{Proteins: 8.5, Fat: 2.2, Carbohydrates: 61}, 75)

	per100g := domain.Per100g(totals.Proteins, 75)
	if got := domain.CalculateTotalNutrient(per100g, 75.0); got != domain.FormatValue(totals.Proteins) {
		t.Errorf("round trip = %s; want %s", got, domain.FormatValue(totals.Proteins))
	}
}

func TestFormatWeight(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{120, "120.0"},
		{75.5, "75.5"},
		{0.125, "0.125"},
		{math.NaN(), "N/A"},
	}
	for _, tc := range tests {
		if got := domain.FormatWeight(tc.in); got != tc.want {
			t.Errorf("FormatWeight(%v) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestQuantityText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "N/A"},
		{"text", "500 g", "500 g"},
		{"json number", json.Number("330"), "330"},
		{"float", 250.0, "250.0"},
		{"int", 40, "40.0"},
		{"unsupported", map[string]any{}, "N/A"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.QuantityText(tc.in); got != tc.want {
				t.Errorf("QuantityText(%v) = %q; want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestProductImageURL(t *testing.T) {
	img := "static/uploads/banana.png"
	empty := ""

	if got := (domain.Product{Image: &img}).ImageURL(); got != img {
		t.Errorf("ImageURL() = %q; want %q", got, img)
	}
	if got := (domain.Product{}).ImageURL(); got != domain.DefaultImageURL {
		t.Errorf("nil image: got %q", got)
	}
	if got := (domain.Product{Image: &empty}).ImageURL(); got != domain.DefaultImageURL {
		t.Errorf("empty image: got %q", got)
	}
}
