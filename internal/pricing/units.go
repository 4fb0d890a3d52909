package pricing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownUnit       = errors.New("unknown unit")
	ErrIncompatibleUnits = errors.New("incompatible units")
	ErrInvalidQuantity   = errors.New("quantity must be a positive number")
)

// Dimension groups units that can be converted into each other.
type Dimension string

const (
	Mass   Dimension = "mass"
	Volume Dimension = "volume"
	Count  Dimension = "count"
)

type unitDef struct {
	dim    Dimension
	factor float64 // multiplier to the dimension's base unit
}

// Base units are g, ml and adet.
var units = map[string]unitDef{
	"g":        {Mass, 1},
	"gr":       {Mass, 1},
	"gram":     {Mass, 1},
	"kg":       {Mass, 1000},
	"kilogram": {Mass, 1000},
	"ton":      {Mass, 1_000_000},

	"ml":    {Volume, 1},
	"cl":    {Volume, 10},
	"l":     {Volume, 1000},
	"lt":    {Volume, 1000},
	"litre": {Volume, 1000},
	"liter": {Volume, 1000},

	"adet":   {Count, 1},
	"pcs":    {Count, 1},
	"piece":  {Count, 1},
	"tane":   {Count, 1},
	"düzine": {Count, 12},
	"dozen":  {Count, 12},
}

// CanonicalUnit lowercases and trims a unit name.
func CanonicalUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}

// DimensionOf reports the dimension of unit.
func DimensionOf(unit string) (Dimension, error) {
	def, ok := units[CanonicalUnit(unit)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
	}
	return def.dim, nil
}

// ConvertQuantity expresses qty given in from as a quantity in to.
// Units that are spelled the same are always compatible, even when they are
// not in the unit table.
func ConvertQuantity(qty float64, from, to string) (float64, error) {
	f, t := CanonicalUnit(from), CanonicalUnit(to)
	if f == t {
		return qty, nil
	}

	fromDef, ok := units[f]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, from)
	}
	toDef, ok := units[t]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, to)
	}
	if fromDef.dim != toDef.dim {
		return 0, fmt.Errorf("%w: %s (%s) -> %s (%s)", ErrIncompatibleUnits, from, fromDef.dim, to, toDef.dim)
	}

	return qty * fromDef.factor / toDef.factor, nil
}
