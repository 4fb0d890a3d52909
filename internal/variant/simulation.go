package variant

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"procheff/internal/pricing"
)

// packageTolerance absorbs float noise so that e.g. 0.3/0.1 needs 3
// packages, not 4.
const packageTolerance = 1e-9

// CostSimulationEngine simulates buying a required quantity of a product in
// whole packages.
type CostSimulationEngine struct{}

// NewCostSimulationEngine returns a CostSimulationEngine.
func NewCostSimulationEngine() *CostSimulationEngine {
	return &CostSimulationEngine{}
}

// Simulate covers in.RequiredQuantity with packages of the selected variant,
// or of the variant with the lowest unit price when none is selected, and
// prices the same purchase with every other variant as an alternative.
func (e *CostSimulationEngine) Simulate(p Product, in SimulationInput) (SimulationResult, error) {
	if len(p.Variants) == 0 {
		return SimulationResult{}, fmt.Errorf("%w: %s", ErrNoVariants, p.ID)
	}
	if in.RequiredQuantity <= 0 || math.IsNaN(in.RequiredQuantity) || math.IsInf(in.RequiredQuantity, 0) {
		return SimulationResult{}, fmt.Errorf("%w: %v", ErrInvalidQuantity, in.RequiredQuantity)
	}

	var (
		selected ProductVariant
		err      error
	)
	if in.SelectedVariantID != "" {
		v, ok := p.Variant(in.SelectedVariantID)
		if !ok {
			return SimulationResult{}, fmt.Errorf("%w: %s in product %s", ErrVariantNotFound, in.SelectedVariantID, p.ID)
		}
		selected = v
	} else {
		selected, err = cheapest(p)
		if err != nil {
			return SimulationResult{}, err
		}
	}

	// Without a unit the requirement is read in the selected variant's
	// size unit, for the alternatives as well.
	unit := in.RequiredUnit
	if unit == "" {
		unit = selected.SizeUnit
	}

	purchase, err := buy(selected, in.RequiredQuantity, unit)
	if err != nil {
		return SimulationResult{}, err
	}

	result := SimulationResult{
		ProductID:    p.ID,
		ProductName:  p.Name,
		Selected:     purchase,
		Alternatives: []Alternative{},
	}

	if in.TargetBudget > 0 {
		result.BudgetAnalysis = &BudgetAnalysis{
			TargetBudget:     in.TargetBudget,
			IsWithinBudget:   purchase.TotalCost <= in.TargetBudget,
			BudgetUsage:      purchase.TotalCost / in.TargetBudget * 100,
			SavingsOrOverrun: in.TargetBudget - purchase.TotalCost,
		}
	}

	for _, v := range p.Variants {
		if v.ID == selected.ID {
			continue
		}
		alt, err := buy(v, in.RequiredQuantity, unit)
		if err != nil {
			// Variants sold in another dimension cannot cover the requirement.
			continue
		}
		result.Alternatives = append(result.Alternatives, Alternative{
			Purchase: alt,
			Savings:  purchase.TotalCost - alt.TotalCost,
		})
	}
	slices.SortStableFunc(result.Alternatives, func(a, b Alternative) int {
		return cmp.Compare(b.Savings, a.Savings)
	})

	return result, nil
}

// cheapest returns the variant with the lowest computed unit price. The
// first variant in list order wins a tie. Variants whose unit price cannot be
// computed are ignored unless none can be.
func cheapest(p Product) (ProductVariant, error) {
	base := baseUnit(p)
	var (
		best     ProductVariant
		bestUnit float64
		found    bool
		firstErr error
	)
	for _, v := range p.Variants {
		up, err := unitPrice(v, base)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !found || up < bestUnit {
			best, bestUnit, found = v, up, true
		}
	}
	if !found {
		return ProductVariant{}, fmt.Errorf("no priceable variant in product %s: %w", p.ID, firstErr)
	}
	best.UnitPrice = bestUnit
	return best, nil
}

// buy covers required, given in unit, with whole packages of v.
func buy(v ProductVariant, required float64, unit string) (Purchase, error) {
	if v.Size <= 0 {
		return Purchase{}, fmt.Errorf("%w: variant %s has size %v", ErrInvalidPackaging, v.ID, v.Size)
	}
	qty, err := pricing.ConvertQuantity(required, unit, v.SizeUnit)
	if err != nil {
		return Purchase{}, fmt.Errorf("variant %s: %w", v.ID, err)
	}

	packages := int(math.Ceil(qty/v.Size - packageTolerance))
	if packages < 1 {
		packages = 1
	}
	bought := float64(packages) * v.Size

	return Purchase{
		Variant:          v,
		RequiredQuantity: qty,
		PackageCount:     packages,
		Quantity:         bought,
		RemainingAmount:  bought - qty,
		TotalCost:        float64(packages) * v.Price,
	}, nil
}
