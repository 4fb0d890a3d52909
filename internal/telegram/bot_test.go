package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"procheff/internal/cost"
	"procheff/internal/metrics"
	"procheff/internal/pricing"
	"procheff/internal/recipe"
	"procheff/internal/variant"
)

type fakeRunStore struct {
	runs       []metrics.Run
	summary    []metrics.DailySummary
	summaryErr error
}

func (f *fakeRunStore) Record(_ context.Context, r metrics.Run) (string, error) {
	f.runs = append(f.runs, r)
	return "run-id", nil
}

func (f *fakeRunStore) GetDailySummary(_ context.Context, _ int) ([]metrics.DailySummary, error) {
	return f.summary, f.summaryErr
}

func newTestCommands(t *testing.T) (*Commands, *fakeRunStore) {
	t.Helper()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	engine := cost.NewEngine(cost.WithClock(func() time.Time { return now }))
	engine.UpdateRecipes([]recipe.Recipe{
		{ID: "R1", Name: "Mercimek Çorbası", Portions: 4, Ingredients: []recipe.Ingredient{
			{MaterialID: "M1", Name: "Mercimek", Qty: 2, Unit: "kg"},
		}},
		{ID: "R2", Name: "Pilav_Special", Portions: 2, Ingredients: []recipe.Ingredient{
			{MaterialID: "M2", Name: "Pirinç", Qty: 1, Unit: "kg"},
		}},
	})
	engine.UpdatePrices([]pricing.Price{{MaterialID: "M1", PriceTRY: 10, Unit: "kg", UpdatedAt: now}})

	catalog := variant.NewCatalog()
	if err := catalog.Replace([]variant.Product{{
		ID: "P1", Name: "Mercimek", BaseUnit: "kg",
		Variants: []variant.ProductVariant{
			{ID: "V1", Vendor: "Metro", Size: 5, SizeUnit: "kg", Price: 100},
			{ID: "V2", Vendor: "A101", Size: 1, SizeUnit: "kg", Price: 25},
		},
	}}); err != nil {
		t.Fatalf("Failed to load products: %v", err)
	}

	runs := &fakeRunStore{}
	return NewCommands(engine, catalog, runs, t.TempDir()), runs
}

func TestCommandsHandle(t *testing.T) {
	cmds, runs := newTestCommands(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		text     string
		contains []string
	}{
		{"Help", "/help", []string{"/recipe <id>", "/simulate"}},
		{"Empty", "   ", []string{"ProCheff cost assistant"}},
		{"Unknown", "/dance", []string{"Unknown command"}},
		{"Recipe", "/recipe R1", []string{"🍲 *Mercimek Çorbası*", "*Total:* ₺20.00", "*Per portion* (4): ₺5.00", "• Mercimek: 2 kg × ₺10.00 = ₺20.00"}},
		{"RecipeWithBotSuffix", "/recipe@ProCheffBot R1", []string{"*Total:* ₺20.00"}},
		{"RecipeMissingPrice", "/recipe R2", []string{`Pilav\_Special`, "*Total:* ₺0.00", "⚠️ *Warnings*", "no price found"}},
		{"RecipeNotFound", "/recipe R9", []string{"❌ Recipe *R9* not found."}},
		{"RecipeUsage", "/recipe", []string{"Usage: /recipe <id>"}},
		{"Day", "/day 10 R1 R9", []string{"for 10 people", "• Mercimek Çorbası: ₺50.00", "_1 unknown recipes skipped_", "*Total:* ₺50.00 (₺5.00 per person)"}},
		{"DayBadPeople", "/day many R1", []string{"non-negative number"}},
		{"Missing", "/missing R1 R2", []string{"*1 materials without a price*", "• M2"}},
		{"NothingMissing", "/missing R1", []string{"✅ All materials are priced."}},
		{"Simulate", "/simulate P1 12", []string{"*Best buy:* 3 × 5 kg from Metro", "*Total:* ₺300.00", "*Leftover:* 3 kg", "• 12 × 1 kg (A101): ₺300.00"}},
		{"SimulateGrams", "/simulate P1 1500 g", []string{"*Best buy:* 1 × 5 kg from Metro", "*Leftover:* 3.5 kg"}},
		{"SimulateCommaDecimal", "/simulate P1 2,5", []string{"*Best buy:* 1 × 5 kg"}},
		{"SimulateUnknownProduct", "/simulate P9 1", []string{"❌ Product *P9* not found."}},
		{"SimulateBadUnit", "/simulate P1 1 lt", []string{"❌ *Error:*", "incompatible units"}},
		{"SimulateBadQty", "/simulate P1 lots", []string{"Quantity must be a number."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cmds.Handle(ctx, tt.text)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("Expected reply to contain %q, got:\n%s", want, got)
				}
			}
		})
	}

	kinds := make(map[metrics.Kind]int)
	for _, r := range runs.runs {
		kinds[r.Kind]++
	}
	if kinds[metrics.KindRecipeCost] != 3 || kinds[metrics.KindSimulation] != 3 || kinds[metrics.KindDayCost] != 1 {
		t.Errorf("Unexpected recorded runs %v", kinds)
	}
}

func TestCommandsMetrics(t *testing.T) {
	cmds, runs := newTestCommands(t)
	ctx := context.Background()

	t.Run("NoData", func(t *testing.T) {
		got := cmds.Handle(ctx, "/metrics")
		if !strings.Contains(got, "_No data yet_") || !strings.Contains(got, "🧠 *System Health*") {
			t.Errorf("Unexpected reply:\n%s", got)
		}
	})

	t.Run("Summary", func(t *testing.T) {
		runs.summary = []metrics.DailySummary{{Date: "2026-10-15", Kind: metrics.KindMonthCost, Runs: 4, Warnings: 2}}
		got := cmds.Handle(ctx, "/metrics")
		if !strings.Contains(got, `• *2026-10-15* month\_cost: 4 runs, 2 warnings`) {
			t.Errorf("Unexpected reply:\n%s", got)
		}
	})

	t.Run("Error", func(t *testing.T) {
		runs.summaryErr = errors.New("db closed")
		if got := cmds.Handle(ctx, "/metrics"); got != "❌ Error fetching metrics." {
			t.Errorf("Unexpected reply %q", got)
		}
	})
}

func TestIsAllowed(t *testing.T) {
	allowed := []int64{42, 7}
	if !isAllowed(allowed, 7) {
		t.Error("Expected user 7 to be allowed")
	}
	if isAllowed(allowed, 8) {
		t.Error("Expected user 8 to be rejected")
	}
	if isAllowed(nil, 42) {
		t.Error("Expected an empty allow list to reject everyone")
	}
}

func TestEscape(t *testing.T) {
	if got := escape("a_b*c`d[e"); got != "a\\_b\\*c\\`d\\[e" {
		t.Errorf("Unexpected escape result %q", got)
	}
}
