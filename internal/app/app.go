package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"procheff/internal/catalog"
	"procheff/internal/config"
	"procheff/internal/cost"
	"procheff/internal/metrics"
	"procheff/internal/pricing"
	"procheff/internal/shared"
	"procheff/internal/storage"
	"procheff/internal/variant"
)

// RunStore records calculation runs and removes old ones.
type RunStore interface {
	Record(ctx context.Context, r metrics.Run) (string, error)
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

// App holds the application's dependencies.
type App struct {
	store      *storage.DataStore
	costs      *cost.Engine
	products   *variant.Catalog
	simulator  *variant.CostSimulationEngine
	comparator *variant.ProductComparisonEngine
	importer   *catalog.Importer
	runs       RunStore
	log        *zap.Logger
	out        io.Writer
}

// NewApp creates an App and loads the fixtures of the data directory into
// its engines. runs may be nil, in which case calculation runs are not
// recorded.
func NewApp(cfg *config.Config, store *storage.DataStore, runs RunStore, log *zap.Logger, out io.Writer) (*App, error) {
	a := &App{
		store:      store,
		costs:      cost.NewEngine(cost.WithStaleAfter(cfg.StaleAfter), cost.WithLogger(log)),
		products:   variant.NewCatalog(),
		simulator:  variant.NewCostSimulationEngine(),
		comparator: variant.NewProductComparisonEngine(),
		importer:   catalog.NewImporter(catalog.WithLogger(log)),
		runs:       runs,
		log:        log,
		out:        out,
	}
	if err := a.Reload(); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload reads recipes, prices and products from the data directory and
// swaps them into the engines.
func (a *App) Reload() error {
	recipes, err := a.store.LoadRecipes()
	if err != nil {
		return fmt.Errorf("failed to load recipes: %w", err)
	}
	prices, err := a.store.LoadPrices()
	if err != nil {
		return fmt.Errorf("failed to load prices: %w", err)
	}
	products, err := a.store.LoadProducts()
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	if err := a.products.Replace(products); err != nil {
		return fmt.Errorf("failed to refresh products: %w", err)
	}
	a.costs.UpdateRecipes(recipes)
	a.costs.UpdatePrices(prices)

	a.log.Info("fixtures loaded",
		zap.String("data_dir", a.store.BasePath()),
		zap.Int("recipes", len(recipes)),
		zap.Int("prices", len(prices)),
		zap.Int("products", len(products)),
	)
	return nil
}

// Costs returns the cost engine.
func (a *App) Costs() *cost.Engine { return a.costs }

// Products returns the product catalog.
func (a *App) Products() *variant.Catalog { return a.products }

// RecipeCost prints the cost of one recipe.
func (a *App) RecipeCost(ctx context.Context, recipeID string) error {
	start := time.Now()
	rc, err := a.costs.CalculateRecipeCost(recipeID)
	if err != nil {
		return err
	}
	a.record(ctx, metrics.Run{
		Kind:         metrics.KindRecipeCost,
		Subject:      recipeID,
		Duration:     time.Since(start),
		WarningCount: len(rc.Warnings),
		TotalTRY:     rc.TotalCost,
	})

	fmt.Fprintf(a.out, "%s (%s)\n", rc.RecipeName, rc.RecipeID)
	fmt.Fprintf(a.out, "Total: %s, per portion (%d): %s\n\n",
		shared.FormatTRY(rc.TotalCost), rc.Portions, shared.FormatTRY(rc.CostPerPortion))

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MATERIAL\tQTY\tUNIT PRICE\tCOST")
	for _, ic := range rc.Breakdown {
		fmt.Fprintf(tw, "%s\t%g %s\t%s\t%s\n",
			ic.MaterialName, ic.Qty, ic.Unit, shared.FormatTRY(ic.UnitPrice), shared.FormatTRY(ic.Cost))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, w := range rc.Warnings {
		fmt.Fprintf(a.out, "warning [%s]: %s\n", w.Type, w.Message)
	}
	return nil
}

// MonthCost prints the cost summary of a stored plan.
func (a *App) MonthCost(ctx context.Context, planName string) error {
	plan, err := a.store.LoadPlan(planName)
	if err != nil {
		return err
	}

	start := time.Now()
	s := a.costs.CalculateMonthCost(plan)
	a.record(ctx, metrics.Run{
		Kind:         metrics.KindMonthCost,
		Subject:      planName,
		Duration:     time.Since(start),
		WarningCount: s.Warnings.Count(),
		TotalTRY:     s.TotalTRY,
	})

	fmt.Fprintf(a.out, "Plan %s: %d people, %d planned days\n", planName, plan.PersonCount, plan.PlannedDays())
	fmt.Fprintf(a.out, "Total: %s\n", shared.FormatTRY(s.TotalTRY))
	fmt.Fprintf(a.out, "Per day: %s, per person per day: %s\n",
		shared.FormatTRY(s.AvgPerDayTRY), shared.FormatTRY(s.AvgPerPersonPerDayTRY))
	if s.MostExpensiveDay != nil {
		fmt.Fprintf(a.out, "Most expensive day: %s (%s)\n",
			s.MostExpensiveDay.Date, shared.FormatTRY(s.MostExpensiveDay.TotalCostTRY))
	}
	if s.LeastExpensiveDay != nil {
		fmt.Fprintf(a.out, "Least expensive day: %s (%s)\n",
			s.LeastExpensiveDay.Date, shared.FormatTRY(s.LeastExpensiveDay.TotalCostTRY))
	}

	if len(s.TopMaterials) > 0 {
		fmt.Fprintln(a.out, "\nTop materials:")
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		for _, m := range s.TopMaterials {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", m.MaterialName, shared.FormatTRY(m.TotalCost), shared.FormatPercent(m.Percentage))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	printIDs(a.out, "Missing prices", s.Warnings.MissingPrices)
	printIDs(a.out, "Stale prices", s.Warnings.StalePrices)
	return nil
}

// MissingPrices prints the materials of a stored plan that have no price.
func (a *App) MissingPrices(ctx context.Context, planName string) error {
	plan, err := a.store.LoadPlan(planName)
	if err != nil {
		return err
	}

	start := time.Now()
	missing := a.costs.FindMissingPrices(plan.RecipeIDs())
	a.record(ctx, metrics.Run{
		Kind:         metrics.KindMissingPrices,
		Subject:      planName,
		Duration:     time.Since(start),
		WarningCount: len(missing),
	})

	if len(missing) == 0 {
		fmt.Fprintln(a.out, "All materials are priced.")
		return nil
	}
	for _, id := range missing {
		fmt.Fprintln(a.out, id)
	}
	return nil
}

// Simulate prints the purchase simulation for a product.
func (a *App) Simulate(ctx context.Context, productID string, in variant.SimulationInput) error {
	p, err := a.products.Get(productID)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := a.simulator.Simulate(p, in)
	if err != nil {
		return err
	}
	a.record(ctx, metrics.Run{
		Kind:     metrics.KindSimulation,
		Subject:  productID,
		Duration: time.Since(start),
		TotalTRY: res.Selected.TotalCost,
	})

	fmt.Fprintf(a.out, "%s: %g %s needed\n", res.ProductName, res.Selected.RequiredQuantity, res.Selected.Variant.SizeUnit)
	fmt.Fprintf(a.out, "Buy %d x %g %s (%s) from %s for %s, %g %s left over\n",
		res.Selected.PackageCount, res.Selected.Variant.Size, res.Selected.Variant.SizeUnit, res.Selected.Variant.ID, res.Selected.Variant.Vendor,
		shared.FormatTRY(res.Selected.TotalCost), res.Selected.RemainingAmount, res.Selected.Variant.SizeUnit)

	if b := res.BudgetAnalysis; b != nil {
		status := "within budget"
		if !b.IsWithinBudget {
			status = "over budget"
		}
		fmt.Fprintf(a.out, "Budget %s: %s, %s used\n",
			shared.FormatTRY(b.TargetBudget), status, shared.FormatPercent(b.BudgetUsage))
	}

	if len(res.Alternatives) > 0 {
		fmt.Fprintln(a.out, "\nAlternatives:")
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		for _, alt := range res.Alternatives {
			fmt.Fprintf(tw, "  %s\t%d x %g %s\t%s\t%s\tsaves %s\n",
				alt.Variant.ID, alt.PackageCount, alt.Variant.Size, alt.Variant.SizeUnit,
				alt.Variant.Vendor, shared.FormatTRY(alt.TotalCost), shared.FormatTRY(alt.Savings))
		}
		return tw.Flush()
	}
	return nil
}

// Compare prints the variant comparison of a product.
func (a *App) Compare(ctx context.Context, productID string) error {
	p, err := a.products.Get(productID)
	if err != nil {
		return err
	}

	start := time.Now()
	cmp, err := a.comparator.CreateComparison(p)
	if err != nil {
		return err
	}
	a.record(ctx, metrics.Run{
		Kind:     metrics.KindComparison,
		Subject:  productID,
		Duration: time.Since(start),
	})

	fmt.Fprintf(a.out, "%s: %d variants\n", cmp.ProductName, cmp.VariantCount)
	fmt.Fprintf(a.out, "Best: %s (%s) at %s/%s\n",
		cmp.BestVariant.ID, cmp.BestVariant.Vendor, shared.FormatTRY(cmp.BaseUnitPrice), cmp.BaseUnit)
	fmt.Fprintf(a.out, "Range: %s - %s (spread %s)\n",
		shared.FormatTRY(cmp.PriceRange.Min), shared.FormatTRY(cmp.PriceRange.Max), shared.FormatPercent(cmp.PriceRange.Spread))
	fmt.Fprintf(a.out, "Vendors: %s\n", strings.Join(cmp.MarketCoverage, ", "))
	fmt.Fprintf(a.out, "Average confidence: %.2f\n", cmp.AverageConfidence)
	return nil
}

// ImportPrices reads a vendor price page from a file or an http(s) URL,
// merges it into the stored prices and saves the result.
func (a *App) ImportPrices(ctx context.Context, source string) error {
	start := time.Now()

	var imported []pricing.Price
	var err error
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		imported, err = a.importer.FetchURL(ctx, source)
	} else {
		imported, err = a.importFile(source)
	}
	if err != nil {
		return fmt.Errorf("failed to import prices from %s: %w", source, err)
	}

	existing, err := a.store.LoadPrices()
	if err != nil {
		return fmt.Errorf("failed to load prices: %w", err)
	}
	merged := catalog.MergePrices(existing, imported)
	if err := a.store.SavePrices(merged); err != nil {
		return fmt.Errorf("failed to save prices: %w", err)
	}
	a.costs.UpdatePrices(merged)

	a.record(ctx, metrics.Run{
		Kind:     metrics.KindPriceImport,
		Subject:  source,
		Duration: time.Since(start),
	})
	fmt.Fprintf(a.out, "Imported %d prices (%d total).\n", len(imported), len(merged))
	return nil
}

func (a *App) importFile(path string) ([]pricing.Price, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return a.importer.ParseHTML(f)
}

// CleanupMetrics removes calculation runs older than the given number of
// days.
func (a *App) CleanupMetrics(ctx context.Context, days int) error {
	if a.runs == nil {
		return fmt.Errorf("metrics store not configured")
	}
	affected, err := a.runs.Cleanup(ctx, days)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Fprintf(a.out, "Successfully removed %d old metric records.\n", affected)
	return nil
}

func (a *App) record(ctx context.Context, run metrics.Run) {
	if a.runs == nil {
		return
	}
	if _, err := a.runs.Record(ctx, run); err != nil {
		a.log.Warn("failed to record calculation run",
			zap.String("kind", string(run.Kind)),
			zap.Error(err),
		)
	}
}

func printIDs(w io.Writer, title string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(w, "%s: %s\n", title, strings.Join(ids, ", "))
}
