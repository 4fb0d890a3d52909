package pricing

import (
	"fmt"
	"math"
	"time"

	"procheff/internal/recipe"
)

// StaleAfter is the age after which a price record is considered stale.
const StaleAfter = 30 * 24 * time.Hour

// Price is a catalog entry for a single material.
type Price struct {
	MaterialID string    `json:"materialId" yaml:"material_id" validate:"required"`
	PriceTRY   float64   `json:"priceTRY" yaml:"price_try" validate:"gte=0"`
	Unit       string    `json:"unit,omitempty" yaml:"unit,omitempty"` // empty: quoted in the ingredient's unit
	UpdatedAt  time.Time `json:"updatedAt" yaml:"updated_at"`
}

// Normalized is an ingredient quantity expressed in the unit of its price.
type Normalized struct {
	Qty       float64
	Unit      string
	UnitPrice float64
}

// Cost returns the cost of the normalized quantity.
func (n Normalized) Cost() float64 {
	return n.Qty * n.UnitPrice
}

// IsPriceStale reports whether a price updated at updatedAt is older than
// StaleAfter at now.
func IsPriceStale(updatedAt, now time.Time) bool {
	return IsOlderThan(updatedAt, now, StaleAfter)
}

// IsOlderThan reports whether more than maxAge has passed between updatedAt
// and now.
func IsOlderThan(updatedAt, now time.Time, maxAge time.Duration) bool {
	return now.Sub(updatedAt) > maxAge
}

// NormalizeIngredientCost converts the ingredient quantity into the unit the
// price is quoted in.
func NormalizeIngredientCost(ing recipe.Ingredient, price Price) (Normalized, error) {
	if ing.Qty <= 0 || math.IsNaN(ing.Qty) || math.IsInf(ing.Qty, 0) {
		return Normalized{}, fmt.Errorf("%w: %v %s", ErrInvalidQuantity, ing.Qty, ing.Unit)
	}

	priceUnit := price.Unit
	if priceUnit == "" {
		priceUnit = ing.Unit
	}

	qty, err := ConvertQuantity(ing.Qty, ing.Unit, priceUnit)
	if err != nil {
		return Normalized{}, err
	}

	return Normalized{
		Qty:       qty,
		Unit:      CanonicalUnit(priceUnit),
		UnitPrice: price.PriceTRY,
	}, nil
}
