package cost

import "errors"

var ErrRecipeNotFound = errors.New("recipe not found")

// WarningType classifies a ValidationError.
type WarningType string

const (
	WarningMissingPrice    WarningType = "missing_price"
	WarningStalePrice      WarningType = "stale_price"
	WarningInvalidQuantity WarningType = "invalid_quantity"
	// WarningPortionMismatch is reserved; no calculation produces it yet.
	WarningPortionMismatch WarningType = "portion_mismatch"
)

// Severity of a ValidationError.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is a recoverable problem found while costing a recipe.
type ValidationError struct {
	Type       WarningType `json:"type"`
	MaterialID string      `json:"materialId,omitempty"`
	RecipeID   string      `json:"recipeId,omitempty"`
	Message    string      `json:"message"`
	Severity   Severity    `json:"severity"`
}

func (v ValidationError) Error() string {
	return v.Message
}

// IngredientCost is the priced contribution of one ingredient line. Qty is
// expressed in Unit, the unit the price is quoted in.
type IngredientCost struct {
	MaterialID   string  `json:"materialId"`
	MaterialName string  `json:"materialName"`
	Qty          float64 `json:"qty"`
	Unit         string  `json:"unit"`
	UnitPrice    float64 `json:"unitPrice"`
	Cost         float64 `json:"cost"`
	Stale        bool    `json:"stale,omitempty"`
}

// RecipeCost is the result of costing one recipe.
type RecipeCost struct {
	RecipeID       string            `json:"recipeId"`
	RecipeName     string            `json:"recipeName"`
	CostPerPortion float64           `json:"costPerPortion"`
	TotalCost      float64           `json:"totalCost"`
	Portions       int               `json:"portions"`
	Breakdown      []IngredientCost  `json:"breakdown"`
	Warnings       []ValidationError `json:"warnings"`
}

// DayRecipeCost is one recipe's share of a day, already scaled by the
// person count.
type DayRecipeCost struct {
	RecipeID   string  `json:"recipeId"`
	RecipeName string  `json:"recipeName"`
	CostTRY    float64 `json:"costTRY"`
}

// DayCost is the cost of feeding the plan's people for one date.
type DayCost struct {
	Date         string          `json:"date"`
	TotalCostTRY float64         `json:"totalCostTRY"`
	RecipeCount  int             `json:"recipeCount"`
	Recipes      []DayRecipeCost `json:"recipes"`
}

// CostBreakdown accumulates one material's usage over a month plan.
type CostBreakdown struct {
	MaterialID   string   `json:"materialId"`
	MaterialName string   `json:"materialName"`
	TotalQty     float64  `json:"totalQty"`
	Unit         string   `json:"unit"`
	UnitPrice    float64  `json:"unitPrice"`
	TotalCost    float64  `json:"totalCost"`
	DaysUsed     []string `json:"daysUsed"`
}

// DayExtreme marks the most or least expensive day of a plan. Difference is
// the non-negative distance from the daily average.
type DayExtreme struct {
	Date         string  `json:"date"`
	TotalCostTRY float64 `json:"totalCostTRY"`
	Difference   float64 `json:"difference"`
}

// MaterialShare is a material's share of the plan total.
type MaterialShare struct {
	MaterialID   string  `json:"materialId"`
	MaterialName string  `json:"materialName"`
	TotalCost    float64 `json:"totalCost"`
	Percentage   float64 `json:"percentage"`
}

// Warnings holds the deduplicated ids behind a plan's warnings.
type Warnings struct {
	MissingPrices     []string `json:"missingPrices"`
	StalePrices       []string `json:"stalePrices"`
	PortionMismatches []string `json:"portionMismatches"`
}

// Count returns the total number of ids across all lists.
func (w Warnings) Count() int {
	return len(w.MissingPrices) + len(w.StalePrices) + len(w.PortionMismatches)
}

// CostSummary is the result of costing a month plan.
type CostSummary struct {
	TotalTRY              float64         `json:"totalTRY"`
	AvgPerDayTRY          float64         `json:"avgPerDayTRY"`
	AvgPerPersonPerDayTRY float64         `json:"avgPerPersonPerDayTRY"`
	MostExpensiveDay      *DayExtreme     `json:"mostExpensiveDay,omitempty"`
	LeastExpensiveDay     *DayExtreme     `json:"leastExpensiveDay,omitempty"`
	TopMaterials          []MaterialShare `json:"topMaterials"`
	DailyCosts            []DayCost       `json:"dailyCosts"`
	MaterialBreakdown     []CostBreakdown `json:"materialBreakdown"`
	Warnings              Warnings        `json:"warnings"`
}

// idSet collects ids once each, keeping first-seen order.
type idSet struct {
	seen map[string]struct{}
	ids  []string
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[string]struct{}), ids: []string{}}
}

func (s *idSet) add(id string) {
	if id == "" {
		return
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}
