package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NotAvailable is displayed in place of a value that is missing or not numeric.
const NotAvailable = "N/A"

// Energy per gram of each macronutrient, in kcal.
const (
	kcalPerGramProtein      = 4
	kcalPerGramCarbohydrate = 4
	kcalPerGramFat          = 9
)

// Macros holds the three macronutrients plus energy for one amount of food.
type Macros struct {
	Calories      float64
	Proteins      float64
	Fat           float64
	Carbohydrates float64
}

// FormatValue renders v with exactly one decimal, or "N/A" when v is nil,
// not numeric, or not finite. It never panics.
func FormatValue(v any) string {
	f, ok := toFloat(v)
	if !ok {
		return NotAvailable
	}
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// CalculateTotalNutrient scales a per-100 g amount to totalWeight grams and
// formats it like FormatValue.
func CalculateTotalNutrient(per100g, totalWeight any) string {
	p, ok := toFloat(per100g)
	if !ok {
		return NotAvailable
	}
	w, ok := toFloat(totalWeight)
	if !ok {
		return NotAvailable
	}
	return FormatValue(p * w / 100)
}

// Per100g derives the per-100 g amount from an absolute total stored for
// weight grams. Returns "N/A" for a non-positive weight.
func Per100g(total, weight float64) string {
	if weight <= 0 {
		return NotAvailable
	}
	return FormatValue((total / weight) * 100)
}

// NutrientsFromPer100g converts per-100 g macronutrients entered by a user
// into absolute totals for weight grams. Calories are derived from the
// macros; per100g.Calories is ignored.
func NutrientsFromPer100g(per100g Macros, weight float64) Macros {
	caloriesPer100g := per100g.Proteins*kcalPerGramProtein +
		per100g.Carbohydrates*kcalPerGramCarbohydrate +
		per100g.Fat*kcalPerGramFat

	return Macros{
		Calories:      caloriesPer100g * weight / 100,
		Proteins:      per100g.Proteins * weight / 100,
		Fat:           per100g.Fat * weight / 100,
		Carbohydrates: per100g.Carbohydrates * weight / 100,
	}
}

// FormatWeight renders a stored weight the way it was entered: integral
// values keep a single trailing ".0", others use the shortest exact form.
func FormatWeight(w float64) string {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return NotAvailable
	}
	s := strconv.FormatFloat(w, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// QuantityText renders an upstream quantity for display without reformatting
// numbers the upstream already sent as text.
func QuantityText(v any) string {
	switch q := v.(type) {
	case nil:
		return NotAvailable
	case string:
		return q
	case json.Number:
		return q.String()
	case float64:
		return FormatWeight(q)
	default:
		if f, ok := toFloat(v); ok {
			return FormatWeight(f)
		}
		return NotAvailable
	}
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case bool:
		if n {
			f = 1
		}
	case json.Number:
		return parseFloat(n.String())
	case string:
		return parseFloat(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(strings.ToLower(strings.TrimLeft(s, "+-")), "0x") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
