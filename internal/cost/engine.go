package cost

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"procheff/internal/planner"
	"procheff/internal/pricing"
	"procheff/internal/recipe"
)

// Engine serves cost calculations against the latest recipe and price
// snapshot. Updates replace a whole side of the snapshot and never disturb a
// calculation already in progress.
type Engine struct {
	mu         sync.RWMutex
	snap       *Snapshot
	now        func() time.Time
	staleAfter time.Duration
	log        *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for price staleness checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithStaleAfter sets the price age after which stale_price warnings are
// reported.
func WithStaleAfter(d time.Duration) Option {
	return func(e *Engine) { e.staleAfter = d }
}

// WithLogger sets the engine's logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an engine with an empty snapshot.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:        time.Now,
		staleAfter: pricing.StaleAfter,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.snap = NewSnapshot(nil, nil).WithStaleAfter(e.staleAfter)
	return e
}

// UpdateRecipes replaces all recipes.
func (e *Engine) UpdateRecipes(recipes []recipe.Recipe) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap = e.snap.WithRecipes(recipes)
	e.log.Debug("recipes replaced", zap.Int("count", e.snap.RecipeCount()))
}

// UpdatePrices replaces all prices.
func (e *Engine) UpdatePrices(prices []pricing.Price) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap = e.snap.WithPrices(prices)
	e.log.Debug("prices replaced", zap.Int("count", e.snap.PriceCount()))
}

// Snapshot returns the current snapshot.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

// CalculateRecipeCost costs a single recipe.
func (e *Engine) CalculateRecipeCost(recipeID string) (RecipeCost, error) {
	rc, err := e.Snapshot().CalculateRecipeCost(recipeID, e.now())
	if err != nil {
		return rc, err
	}
	for _, w := range rc.Warnings {
		e.log.Debug("recipe cost warning",
			zap.String("recipe_id", recipeID),
			zap.String("type", string(w.Type)),
			zap.String("material_id", w.MaterialID),
		)
	}
	return rc, nil
}

// CalculateDayCost costs one day of recipes for personCount people.
func (e *Engine) CalculateDayCost(date string, recipeIDs []string, personCount int) DayCost {
	return e.Snapshot().CalculateDayCost(date, recipeIDs, personCount, e.now())
}

// CalculateMonthCost costs a whole plan.
func (e *Engine) CalculateMonthCost(plan planner.MonthPlan) CostSummary {
	summary := e.Snapshot().CalculateMonthCost(plan, e.now())
	e.log.Debug("month cost calculated",
		zap.Int("planned_days", len(summary.DailyCosts)),
		zap.Float64("total_try", summary.TotalTRY),
		zap.Int("missing_prices", len(summary.Warnings.MissingPrices)),
		zap.Int("stale_prices", len(summary.Warnings.StalePrices)),
	)
	return summary
}

// FindMissingPrices lists unpriced materials of the given recipes.
func (e *Engine) FindMissingPrices(recipeIDs []string) []string {
	return e.Snapshot().FindMissingPrices(recipeIDs)
}

// EstimateQuickCost returns a best-effort total for a set of recipes.
func (e *Engine) EstimateQuickCost(recipeIDs []string, personCount int) float64 {
	return e.Snapshot().EstimateQuickCost(recipeIDs, personCount, e.now())
}
