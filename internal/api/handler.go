package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"procheff/internal/cost"
	"procheff/internal/metrics"
	"procheff/internal/planner"
	"procheff/internal/pricing"
	"procheff/internal/recipe"
	"procheff/internal/shared"
	"procheff/internal/variant"
)

// RunRecorder stores calculation runs.
type RunRecorder interface {
	Record(ctx context.Context, r metrics.Run) (string, error)
}

// Handler serves the cost and product endpoints.
type Handler struct {
	costs      *cost.Engine
	products   *variant.Catalog
	simulator  *variant.CostSimulationEngine
	comparator *variant.ProductComparisonEngine
	runs       RunRecorder
	validate   *validator.Validate
	log        *zap.Logger
	dataDir    string
}

// NewHandler creates a Handler. runs may be nil, in which case calculation
// runs are not recorded.
func NewHandler(costs *cost.Engine, products *variant.Catalog, runs RunRecorder, log *zap.Logger, dataDir string) *Handler {
	return &Handler{
		costs:      costs,
		products:   products,
		simulator:  variant.NewCostSimulationEngine(),
		comparator: variant.NewProductComparisonEngine(),
		runs:       runs,
		validate:   validator.New(),
		log:        log,
		dataDir:    dataDir,
	}
}

// SetupRoutes configures all API routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.PUT("/recipes", h.ReplaceRecipes)
		api.PUT("/prices", h.ReplacePrices)
		api.PUT("/products", h.ReplaceProducts)

		api.GET("/recipes/:id/cost", h.RecipeCost)
		api.POST("/days/cost", h.DayCost)
		api.POST("/plans/cost", h.MonthCost)
		api.POST("/plans/missing-prices", h.MissingPrices)
		api.POST("/plans/quick-cost", h.QuickCost)

		api.GET("/products", h.ListProducts)
		api.GET("/products/:id/comparison", h.CompareProduct)
		api.POST("/products/:id/simulate", h.SimulatePurchase)
	}
}

// Health reports data set sizes and process health.
func (h *Handler) Health(c *gin.Context) {
	snap := h.costs.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"recipes":  snap.RecipeCount(),
		"prices":   snap.PriceCount(),
		"products": h.products.Len(),
		"system":   metrics.GetSysHealth(h.dataDir),
	})
}

// ReplaceRecipes swaps in a new recipe set.
func (h *Handler) ReplaceRecipes(c *gin.Context) {
	var recipes []recipe.Recipe
	if err := c.ShouldBindJSON(&recipes); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	if err := recipe.ValidateAll(recipes); err != nil {
		h.fail(c, err)
		return
	}
	h.costs.UpdateRecipes(recipes)
	c.JSON(http.StatusOK, gin.H{"count": len(recipes)})
}

// ReplacePrices swaps in a new price catalog.
func (h *Handler) ReplacePrices(c *gin.Context) {
	var prices []pricing.Price
	if err := c.ShouldBindJSON(&prices); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	if err := h.validate.Var(prices, "dive"); err != nil {
		h.fail(c, err)
		return
	}
	h.costs.UpdatePrices(prices)
	c.JSON(http.StatusOK, gin.H{"count": len(prices)})
}

// ReplaceProducts refreshes and swaps in a new product set. Nothing is
// replaced if any product fails to refresh.
func (h *Handler) ReplaceProducts(c *gin.Context) {
	var products []variant.Product
	if err := c.ShouldBindJSON(&products); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	if err := h.validate.Var(products, "dive"); err != nil {
		h.fail(c, err)
		return
	}
	if _, err := variant.RefreshAll(products); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	if err := h.products.Replace(products); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(products)})
}

type recipeCostResponse struct {
	cost.RecipeCost
	FormattedTotal      string `json:"formattedTotal"`
	FormattedPerPortion string `json:"formattedPerPortion"`
}

// RecipeCost costs a single recipe.
func (h *Handler) RecipeCost(c *gin.Context) {
	start := time.Now()
	id := c.Param("id")

	rc, err := h.costs.CalculateRecipeCost(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, metrics.Run{
		Kind:         metrics.KindRecipeCost,
		Subject:      id,
		Duration:     time.Since(start),
		WarningCount: len(rc.Warnings),
		TotalTRY:     rc.TotalCost,
	})

	c.JSON(http.StatusOK, recipeCostResponse{
		RecipeCost:          rc,
		FormattedTotal:      shared.FormatTRY(rc.TotalCost),
		FormattedPerPortion: shared.FormatTRY(rc.CostPerPortion),
	})
}

type dayCostRequest struct {
	Date        string   `json:"date" validate:"required"`
	RecipeIDs   []string `json:"recipeIds"`
	PersonCount int      `json:"personCount" validate:"gte=0"`
}

type dayCostResponse struct {
	cost.DayCost
	Formatted string `json:"formatted"`
}

// DayCost costs one day of recipes.
func (h *Handler) DayCost(c *gin.Context) {
	start := time.Now()
	var req dayCostRequest
	if err := h.bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	if _, err := planner.ParseDate(req.Date); err != nil {
		h.fail(c, err)
		return
	}

	day := h.costs.CalculateDayCost(req.Date, req.RecipeIDs, req.PersonCount)
	h.record(c, metrics.Run{
		Kind:     metrics.KindDayCost,
		Subject:  req.Date,
		Duration: time.Since(start),
		TotalTRY: day.TotalCostTRY,
	})

	c.JSON(http.StatusOK, dayCostResponse{DayCost: day, Formatted: shared.FormatTRY(day.TotalCostTRY)})
}

type monthCostResponse struct {
	cost.CostSummary
	FormattedTotal     string `json:"formattedTotal"`
	FormattedAvgPerDay string `json:"formattedAvgPerDay"`
}

// MonthCost costs a whole plan.
func (h *Handler) MonthCost(c *gin.Context) {
	start := time.Now()
	var plan planner.MonthPlan
	if err := h.bind(c, &plan); err != nil {
		h.fail(c, err)
		return
	}
	if err := plan.Validate(); err != nil {
		h.fail(c, err)
		return
	}

	summary := h.costs.CalculateMonthCost(plan)
	h.record(c, metrics.Run{
		Kind:         metrics.KindMonthCost,
		Duration:     time.Since(start),
		WarningCount: summary.Warnings.Count(),
		TotalTRY:     summary.TotalTRY,
	})

	c.JSON(http.StatusOK, monthCostResponse{
		CostSummary:        summary,
		FormattedTotal:     shared.FormatTRY(summary.TotalTRY),
		FormattedAvgPerDay: shared.FormatTRY(summary.AvgPerDayTRY),
	})
}

type recipeIDsRequest struct {
	RecipeIDs   []string `json:"recipeIds" validate:"required"`
	PersonCount int      `json:"personCount" validate:"gte=0"`
}

// MissingPrices lists the unpriced materials of a set of recipes.
func (h *Handler) MissingPrices(c *gin.Context) {
	start := time.Now()
	var req recipeIDsRequest
	if err := h.bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	missing := h.costs.FindMissingPrices(req.RecipeIDs)
	h.record(c, metrics.Run{
		Kind:         metrics.KindMissingPrices,
		Duration:     time.Since(start),
		WarningCount: len(missing),
	})

	c.JSON(http.StatusOK, gin.H{"missingPrices": missing})
}

// QuickCost returns a best-effort day total.
func (h *Handler) QuickCost(c *gin.Context) {
	start := time.Now()
	var req recipeIDsRequest
	if err := h.bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	total := h.costs.EstimateQuickCost(req.RecipeIDs, req.PersonCount)
	h.record(c, metrics.Run{
		Kind:     metrics.KindQuickCost,
		Duration: time.Since(start),
		TotalTRY: total,
	})

	c.JSON(http.StatusOK, gin.H{"totalTRY": total, "formatted": shared.FormatTRY(total)})
}

// ListProducts returns all products with refreshed variants.
func (h *Handler) ListProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": h.products.List()})
}

// CompareProduct compares the variants of a product.
func (h *Handler) CompareProduct(c *gin.Context) {
	start := time.Now()
	p, err := h.products.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	cmp, err := h.comparator.CreateComparison(p)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, metrics.Run{
		Kind:     metrics.KindComparison,
		Subject:  p.ID,
		Duration: time.Since(start),
	})

	c.JSON(http.StatusOK, cmp)
}

type simulationResponse struct {
	variant.SimulationResult
	Formatted string `json:"formatted"`
}

// SimulatePurchase simulates buying a quantity of a product.
func (h *Handler) SimulatePurchase(c *gin.Context) {
	start := time.Now()
	p, err := h.products.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	var in variant.SimulationInput
	if err := h.bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}

	res, err := h.simulator.Simulate(p, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.record(c, metrics.Run{
		Kind:     metrics.KindSimulation,
		Subject:  p.ID,
		Duration: time.Since(start),
		TotalTRY: res.Selected.TotalCost,
	})

	c.JSON(http.StatusOK, simulationResponse{SimulationResult: res, Formatted: shared.FormatTRY(res.Selected.TotalCost)})
}

// bind decodes the JSON body into req and validates it.
func (h *Handler) bind(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return badRequest(err)
	}
	return h.validate.Struct(req)
}

// record stores a run tagged with the request id. Failures are logged only.
func (h *Handler) record(c *gin.Context, run metrics.Run) {
	if h.runs == nil {
		return
	}
	run.RequestID = c.GetString(requestIDKey)
	if _, err := h.runs.Record(c.Request.Context(), run); err != nil {
		h.log.Error("failed to record calculation run",
			zap.String("kind", string(run.Kind)),
			zap.Error(err),
		)
	}
}
