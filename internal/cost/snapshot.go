package cost

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"procheff/internal/planner"
	"procheff/internal/pricing"
	"procheff/internal/recipe"
)

// topMaterialCount is the number of materials reported in TopMaterials.
const topMaterialCount = 3

// Snapshot is an immutable view of the recipes and prices a calculation
// runs against. It is safe for concurrent use.
type Snapshot struct {
	recipes    map[string]recipe.Recipe
	prices     map[string]pricing.Price
	staleAfter time.Duration
}

// NewSnapshot builds a snapshot from the given records. Later records win
// over earlier ones with the same id.
func NewSnapshot(recipes []recipe.Recipe, prices []pricing.Price) *Snapshot {
	return &Snapshot{
		recipes:    indexRecipes(recipes),
		prices:     indexPrices(prices),
		staleAfter: pricing.StaleAfter,
	}
}

func indexRecipes(recipes []recipe.Recipe) map[string]recipe.Recipe {
	m := make(map[string]recipe.Recipe, len(recipes))
	for _, r := range recipes {
		m[r.ID] = r.Clone()
	}
	return m
}

func indexPrices(prices []pricing.Price) map[string]pricing.Price {
	m := make(map[string]pricing.Price, len(prices))
	for _, p := range prices {
		m[p.MaterialID] = p
	}
	return m
}

// WithRecipes returns a snapshot whose recipes are replaced wholesale.
func (s *Snapshot) WithRecipes(recipes []recipe.Recipe) *Snapshot {
	return &Snapshot{recipes: indexRecipes(recipes), prices: s.prices, staleAfter: s.staleAfter}
}

// WithPrices returns a snapshot whose prices are replaced wholesale.
func (s *Snapshot) WithPrices(prices []pricing.Price) *Snapshot {
	return &Snapshot{recipes: s.recipes, prices: indexPrices(prices), staleAfter: s.staleAfter}
}

// WithStaleAfter returns a snapshot that reports prices older than d as
// stale.
func (s *Snapshot) WithStaleAfter(d time.Duration) *Snapshot {
	return &Snapshot{recipes: s.recipes, prices: s.prices, staleAfter: d}
}

// StaleAfter returns the age after which prices are reported as stale.
func (s *Snapshot) StaleAfter() time.Duration { return s.staleAfter }

// Recipe looks up a recipe by id.
func (s *Snapshot) Recipe(id string) (recipe.Recipe, bool) {
	r, ok := s.recipes[id]
	if !ok {
		return recipe.Recipe{}, false
	}
	return r.Clone(), true
}

// Price looks up a price by material id.
func (s *Snapshot) Price(materialID string) (pricing.Price, bool) {
	p, ok := s.prices[materialID]
	return p, ok
}

// RecipeCount returns the number of recipes in the snapshot.
func (s *Snapshot) RecipeCount() int { return len(s.recipes) }

// PriceCount returns the number of prices in the snapshot.
func (s *Snapshot) PriceCount() int { return len(s.prices) }

// CalculateRecipeCost prices every ingredient of a recipe. Missing prices
// and unconvertible quantities contribute nothing and are reported as
// warnings; stale prices are used and reported. The only error is an
// unknown recipe id.
func (s *Snapshot) CalculateRecipeCost(recipeID string, now time.Time) (RecipeCost, error) {
	r, ok := s.recipes[recipeID]
	if !ok {
		return RecipeCost{}, fmt.Errorf("%w: %s", ErrRecipeNotFound, recipeID)
	}

	result := RecipeCost{
		RecipeID:   r.ID,
		RecipeName: r.Name,
		Portions:   r.Portions,
		Breakdown:  []IngredientCost{},
		Warnings:   []ValidationError{},
	}

	for _, ing := range r.Ingredients {
		price, ok := s.prices[ing.MaterialID]
		if !ok {
			result.Warnings = append(result.Warnings, ValidationError{
				Type:       WarningMissingPrice,
				MaterialID: ing.MaterialID,
				RecipeID:   r.ID,
				Message:    fmt.Sprintf("no price found for %s (%s)", displayName(ing), ing.MaterialID),
				Severity:   SeverityError,
			})
			continue
		}

		stale := pricing.IsOlderThan(price.UpdatedAt, now, s.staleAfter)
		if stale {
			days := int(now.Sub(price.UpdatedAt).Hours() / 24)
			result.Warnings = append(result.Warnings, ValidationError{
				Type:       WarningStalePrice,
				MaterialID: ing.MaterialID,
				RecipeID:   r.ID,
				Message:    fmt.Sprintf("price for %s was last updated %d days ago", displayName(ing), days),
				Severity:   SeverityWarning,
			})
		}

		n, err := pricing.NormalizeIngredientCost(ing, price)
		if err != nil {
			result.Warnings = append(result.Warnings, ValidationError{
				Type:       WarningInvalidQuantity,
				MaterialID: ing.MaterialID,
				RecipeID:   r.ID,
				Message:    fmt.Sprintf("cannot cost %s: %v", displayName(ing), err),
				Severity:   SeverityError,
			})
			continue
		}

		c := n.Cost()
		result.TotalCost += c
		result.Breakdown = append(result.Breakdown, IngredientCost{
			MaterialID:   ing.MaterialID,
			MaterialName: displayName(ing),
			Qty:          n.Qty,
			Unit:         n.Unit,
			UnitPrice:    n.UnitPrice,
			Cost:         c,
			Stale:        stale,
		})
	}

	result.CostPerPortion = result.TotalCost
	if r.Portions > 0 {
		result.CostPerPortion = result.TotalCost / float64(r.Portions)
	}
	return result, nil
}

func displayName(ing recipe.Ingredient) string {
	if ing.Name != "" {
		return ing.Name
	}
	return ing.MaterialID
}

// CalculateDayCost sums cost per portion times personCount over the given
// recipes. Unknown recipe ids are skipped without a warning but still count
// towards RecipeCount.
func (s *Snapshot) CalculateDayCost(date string, recipeIDs []string, personCount int, now time.Time) DayCost {
	day, _ := s.dayCost(date, recipeIDs, personCount, now)
	return day
}

// dayCost costs each resolvable recipe once and returns both the day total
// and the per-recipe results it was derived from.
func (s *Snapshot) dayCost(date string, recipeIDs []string, personCount int, now time.Time) (DayCost, []RecipeCost) {
	day := DayCost{
		Date:        date,
		RecipeCount: len(recipeIDs),
		Recipes:     []DayRecipeCost{},
	}
	costs := make([]RecipeCost, 0, len(recipeIDs))

	for _, id := range recipeIDs {
		if _, ok := s.recipes[id]; !ok {
			continue
		}
		rc, err := s.CalculateRecipeCost(id, now)
		if err != nil {
			continue
		}
		scaled := rc.CostPerPortion * float64(personCount)
		day.TotalCostTRY += scaled
		day.Recipes = append(day.Recipes, DayRecipeCost{
			RecipeID:   rc.RecipeID,
			RecipeName: rc.RecipeName,
			CostTRY:    scaled,
		})
		costs = append(costs, rc)
	}
	return day, costs
}

// CalculateMonthCost costs every planned day of the plan and aggregates the
// totals, averages, extremes, material usage and warnings. Days without
// recipes are ignored entirely. Material usage scales each recipe's full
// ingredient quantities by the person count, so it does not add up to the
// day totals, which scale the per-portion cost.
func (s *Snapshot) CalculateMonthCost(plan planner.MonthPlan, now time.Time) CostSummary {
	summary := CostSummary{
		TopMaterials:      []MaterialShare{},
		DailyCosts:        []DayCost{},
		MaterialBreakdown: []CostBreakdown{},
	}

	usage := make(map[string]*CostBreakdown)
	missing, stale, mismatched := newIDSet(), newIDSet(), newIDSet()
	persons := float64(plan.PersonCount)

	for _, d := range plan.Days {
		if !d.Complete() {
			continue
		}

		day, costs := s.dayCost(d.Date, d.RecipeIDs, plan.PersonCount, now)
		summary.DailyCosts = append(summary.DailyCosts, day)
		summary.TotalTRY += day.TotalCostTRY

		for _, rc := range costs {
			for _, w := range rc.Warnings {
				switch w.Type {
				case WarningMissingPrice:
					missing.add(w.MaterialID)
				case WarningStalePrice:
					stale.add(w.MaterialID)
				case WarningPortionMismatch:
					mismatched.add(w.RecipeID)
				}
			}

			usedByRecipe := make(map[string]struct{}, len(rc.Breakdown))
			for _, item := range rc.Breakdown {
				u, ok := usage[item.MaterialID]
				if !ok {
					u = &CostBreakdown{
						MaterialID:   item.MaterialID,
						MaterialName: item.MaterialName,
						Unit:         item.Unit,
						UnitPrice:    item.UnitPrice,
						DaysUsed:     []string{},
					}
					usage[item.MaterialID] = u
				}

				qty := item.Qty
				if item.Unit != u.Unit {
					converted, err := pricing.ConvertQuantity(item.Qty, item.Unit, u.Unit)
					if err != nil {
						qty = 0
					} else {
						qty = converted
					}
				}
				u.TotalQty += qty * persons
				u.TotalCost += item.Cost * persons

				if _, seen := usedByRecipe[item.MaterialID]; !seen {
					usedByRecipe[item.MaterialID] = struct{}{}
					u.DaysUsed = append(u.DaysUsed, d.Date)
				}
			}
		}
	}

	plannedDays := len(summary.DailyCosts)
	if plannedDays > 0 {
		summary.AvgPerDayTRY = summary.TotalTRY / float64(plannedDays)
	}
	if plan.PersonCount > 0 {
		summary.AvgPerPersonPerDayTRY = summary.AvgPerDayTRY / persons
	}

	if plannedDays > 0 {
		sorted := slices.Clone(summary.DailyCosts)
		slices.SortStableFunc(sorted, func(a, b DayCost) int {
			return cmp.Compare(b.TotalCostTRY, a.TotalCostTRY)
		})
		most, least := sorted[0], sorted[len(sorted)-1]
		summary.MostExpensiveDay = &DayExtreme{
			Date:         most.Date,
			TotalCostTRY: most.TotalCostTRY,
			Difference:   most.TotalCostTRY - summary.AvgPerDayTRY,
		}
		summary.LeastExpensiveDay = &DayExtreme{
			Date:         least.Date,
			TotalCostTRY: least.TotalCostTRY,
			Difference:   math.Abs(summary.AvgPerDayTRY - least.TotalCostTRY),
		}
	}

	for _, u := range usage {
		summary.MaterialBreakdown = append(summary.MaterialBreakdown, *u)
	}
	slices.SortFunc(summary.MaterialBreakdown, func(a, b CostBreakdown) int {
		if c := cmp.Compare(b.TotalCost, a.TotalCost); c != 0 {
			return c
		}
		return cmp.Compare(a.MaterialID, b.MaterialID)
	})

	for _, m := range summary.MaterialBreakdown[:min(topMaterialCount, len(summary.MaterialBreakdown))] {
		share := MaterialShare{
			MaterialID:   m.MaterialID,
			MaterialName: m.MaterialName,
			TotalCost:    m.TotalCost,
		}
		if summary.TotalTRY != 0 {
			share.Percentage = m.TotalCost / summary.TotalTRY * 100
		}
		summary.TopMaterials = append(summary.TopMaterials, share)
	}

	summary.Warnings = Warnings{
		MissingPrices:     missing.ids,
		StalePrices:       stale.ids,
		PortionMismatches: mismatched.ids,
	}
	return summary
}

// FindMissingPrices returns the material ids used by the given recipes that
// have no price. Unknown recipe ids are skipped.
func (s *Snapshot) FindMissingPrices(recipeIDs []string) []string {
	missing := newIDSet()
	for _, id := range recipeIDs {
		r, ok := s.recipes[id]
		if !ok {
			continue
		}
		for _, ing := range r.Ingredients {
			if _, ok := s.prices[ing.MaterialID]; !ok {
				missing.add(ing.MaterialID)
			}
		}
	}
	return missing.ids
}

// EstimateQuickCost is a best-effort day total for previews. Recipes that
// cannot be costed are ignored.
func (s *Snapshot) EstimateQuickCost(recipeIDs []string, personCount int, now time.Time) float64 {
	var total float64
	for _, id := range recipeIDs {
		rc, err := s.CalculateRecipeCost(id, now)
		if err != nil {
			continue
		}
		total += rc.CostPerPortion * float64(personCount)
	}
	return total
}
