package variant

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"procheff/internal/pricing"
)

// baseUnit returns the unit unit prices of p are expressed in. A product
// without a base unit uses the size unit of its first variant.
func baseUnit(p Product) string {
	if p.BaseUnit != "" {
		return p.BaseUnit
	}
	if len(p.Variants) > 0 {
		return p.Variants[0].SizeUnit
	}
	return ""
}

// unitPrice is the variant price per one base unit.
func unitPrice(v ProductVariant, base string) (float64, error) {
	if v.Size <= 0 {
		return 0, fmt.Errorf("%w: variant %s has size %v", ErrInvalidPackaging, v.ID, v.Size)
	}
	size, err := pricing.ConvertQuantity(v.Size, v.SizeUnit, base)
	if err != nil {
		return 0, fmt.Errorf("variant %s: %w", v.ID, err)
	}
	return v.Price / size, nil
}

// Refresh recomputes unit prices and returns a copy of p with its variants
// sorted by ascending unit price. Only the first variant is flagged as the
// base price; variants with equal unit prices keep their input order, so the
// earliest one wins a tie.
func Refresh(p Product) (Product, error) {
	out := p.Clone()
	base := baseUnit(out)
	for i := range out.Variants {
		up, err := unitPrice(out.Variants[i], base)
		if err != nil {
			return p, fmt.Errorf("failed to refresh product %s: %w", p.ID, err)
		}
		out.Variants[i].UnitPrice = up
		out.Variants[i].IsBasePrice = false
	}

	slices.SortStableFunc(out.Variants, func(a, b ProductVariant) int {
		return cmp.Compare(a.UnitPrice, b.UnitPrice)
	})
	if len(out.Variants) > 0 {
		out.Variants[0].IsBasePrice = true
	}
	return out, nil
}

// RefreshAll refreshes every product. Products that fail to refresh are
// returned unchanged and their errors are joined.
func RefreshAll(products []Product) ([]Product, error) {
	out := make([]Product, len(products))
	var errs []error
	for i, p := range products {
		r, err := Refresh(p)
		if err != nil {
			errs = append(errs, err)
			out[i] = p.Clone()
			continue
		}
		out[i] = r
	}
	return out, errors.Join(errs...)
}
