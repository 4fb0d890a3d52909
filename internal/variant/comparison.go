package variant

import "fmt"

// ProductComparisonEngine compares the variants of a product.
type ProductComparisonEngine struct{}

// NewProductComparisonEngine returns a ProductComparisonEngine.
func NewProductComparisonEngine() *ProductComparisonEngine {
	return &ProductComparisonEngine{}
}

// CreateComparison summarizes the unit prices, vendors and price confidence
// of p's variants.
func (e *ProductComparisonEngine) CreateComparison(p Product) (ProductComparison, error) {
	if len(p.Variants) == 0 {
		return ProductComparison{}, fmt.Errorf("%w: %s", ErrNoVariants, p.ID)
	}

	refreshed, err := Refresh(p)
	if err != nil {
		return ProductComparison{}, err
	}
	vs := refreshed.Variants
	best, worst := vs[0], vs[len(vs)-1]

	pr := PriceRange{Min: best.UnitPrice, Max: worst.UnitPrice}
	if pr.Min != 0 {
		pr.Spread = (pr.Max - pr.Min) / pr.Min * 100
	}

	vendors := []string{}
	seen := make(map[string]struct{})
	var confidence float64
	for _, v := range p.Variants {
		confidence += v.PriceSource.Confidence
		if v.Vendor == "" {
			continue
		}
		if _, ok := seen[v.Vendor]; ok {
			continue
		}
		seen[v.Vendor] = struct{}{}
		vendors = append(vendors, v.Vendor)
	}

	return ProductComparison{
		ProductID:         p.ID,
		ProductName:       p.Name,
		BaseUnit:          baseUnit(p),
		BaseUnitPrice:     best.UnitPrice,
		PriceRange:        pr,
		MarketCoverage:    vendors,
		AverageConfidence: confidence / float64(len(p.Variants)),
		BestVariant:       best,
		VariantCount:      len(p.Variants),
	}, nil
}
