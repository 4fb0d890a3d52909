package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"procheff/internal/config"
	"procheff/internal/cost"
	"procheff/internal/metrics"
	"procheff/internal/storage"
	"procheff/internal/variant"
)

type fakeRuns struct {
	recorded []metrics.Run
	cleaned  int
}

func (f *fakeRuns) Record(_ context.Context, r metrics.Run) (string, error) {
	f.recorded = append(f.recorded, r)
	return "run-id", nil
}

func (f *fakeRuns) Cleanup(_ context.Context, olderThanDays int) (int64, error) {
	f.cleaned = olderThanDays
	return 3, nil
}

func (f *fakeRuns) kinds() []metrics.Kind {
	var kinds []metrics.Kind
	for _, r := range f.recorded {
		kinds = append(kinds, r.Kind)
	}
	return kinds
}

const recipesYAML = `
recipes:
  - id: R1
    name: Mercimek Çorbası
    portions: 4
    ingredients:
      - material_id: M1
        name: Kırmızı mercimek
        qty: 2
        unit: kg
      - material_id: M2
        name: Su
        qty: 3
        unit: lt
`

const productsYAML = `
products:
  - id: P1
    name: Kırmızı mercimek
    base_unit: kg
    variants:
      - id: V1
        vendor: Metro
        size: 5
        size_unit: kg
        price: 200
      - id: V2
        vendor: A101
        size: 1
        size_unit: kg
        price: 45
`

const planYAML = `
person_count: 120
days:
  - date: "2026-10-01"
    recipe_ids: [R1]
  - date: "2026-10-02"
    recipe_ids: []
`

func writeFixture(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
}

func newTestApp(t *testing.T) (*App, *bytes.Buffer, *fakeRuns, string) {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, "recipes.yaml", recipesYAML)
	writeFixture(t, dir, "prices.yaml", `
prices:
  - material_id: M1
    price_try: 42.5
    unit: kg
    updated_at: `+time.Now().UTC().Format(time.RFC3339)+`
`)
	writeFixture(t, dir, "products.yaml", productsYAML)
	writeFixture(t, dir, "plans/ekim.yaml", planYAML)

	store, err := storage.NewDataStore(dir)
	if err != nil {
		t.Fatalf("Failed to create data store: %v", err)
	}
	cfg := &config.Config{DataDir: dir, StaleAfter: 30 * 24 * time.Hour}
	runs := &fakeRuns{}
	var out bytes.Buffer

	a, err := NewApp(cfg, store, runs, zap.NewNop(), &out)
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	return a, &out, runs, dir
}

func TestNewApp(t *testing.T) {
	a, _, _, _ := newTestApp(t)

	snap := a.Costs().Snapshot()
	if snap.RecipeCount() != 1 || snap.PriceCount() != 1 {
		t.Errorf("Expected 1 recipe and 1 price, got %d and %d", snap.RecipeCount(), snap.PriceCount())
	}
	p, err := a.Products().Get("P1")
	if err != nil {
		t.Fatalf("Expected product P1, got %v", err)
	}
	if p.Variants[0].ID != "V1" || !p.Variants[0].IsBasePrice {
		t.Errorf("Expected refreshed variants with V1 first, got %+v", p.Variants)
	}
}

func TestNewAppRejectsBrokenFixtures(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "recipes.yaml", "recipes: [")
	store, err := storage.NewDataStore(dir)
	if err != nil {
		t.Fatalf("Failed to create data store: %v", err)
	}

	_, err = NewApp(&config.Config{DataDir: dir}, store, nil, zap.NewNop(), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "failed to load recipes") {
		t.Errorf("Expected recipe load error, got %v", err)
	}
}

func TestRecipeCost(t *testing.T) {
	a, out, runs, _ := newTestApp(t)

	if err := a.RecipeCost(context.Background(), "R1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Mercimek Çorbası (R1)",
		"Total: ₺85.00, per portion (4): ₺21.25",
		"Kırmızı mercimek",
		"warning [missing_price]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, got)
		}
	}
	if len(runs.recorded) != 1 || runs.recorded[0].WarningCount != 1 || runs.recorded[0].TotalTRY != 85 {
		t.Errorf("Expected one recipe run with 1 warning and total 85, got %+v", runs.recorded)
	}

	err := a.RecipeCost(context.Background(), "R404")
	if !errors.Is(err, cost.ErrRecipeNotFound) {
		t.Errorf("Expected ErrRecipeNotFound, got %v", err)
	}
}

func TestMonthCost(t *testing.T) {
	a, out, _, _ := newTestApp(t)

	if err := a.MonthCost(context.Background(), "ekim"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Plan ekim: 120 people, 1 planned days",
		"Total: ₺2550.00",
		"Most expensive day: 2026-10-01",
		"Missing prices: M2",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, got)
		}
	}

	err := a.MonthCost(context.Background(), "kasim")
	if !errors.Is(err, storage.ErrPlanNotFound) {
		t.Errorf("Expected ErrPlanNotFound, got %v", err)
	}
}

func TestMissingPrices(t *testing.T) {
	a, out, runs, _ := newTestApp(t)

	if err := a.MissingPrices(context.Background(), "ekim"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "M2" {
		t.Errorf("Expected M2, got %q", got)
	}
	if len(runs.recorded) != 1 || runs.recorded[0].Kind != metrics.KindMissingPrices {
		t.Errorf("Expected one missing_prices run, got %+v", runs.recorded)
	}
}

func TestSimulate(t *testing.T) {
	a, out, _, _ := newTestApp(t)

	in := variant.SimulationInput{RequiredQuantity: 3, RequiredUnit: "kg", TargetBudget: 250}
	if err := a.Simulate(context.Background(), "P1", in); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Buy 1 x 5 kg (V1) from Metro for ₺200.00, 2 kg left over",
		"Budget ₺250.00: within budget, 80.0% used",
		"saves ₺65.00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, got)
		}
	}

	err := a.Simulate(context.Background(), "P404", in)
	if !errors.Is(err, variant.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	a, out, _, _ := newTestApp(t)

	if err := a.Compare(context.Background(), "P1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Kırmızı mercimek: 2 variants",
		"Best: V1 (Metro) at ₺40.00/kg",
		"Range: ₺40.00 - ₺45.00 (spread 12.5%)",
		"Vendors: Metro, A101",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, got)
		}
	}
}

func TestImportPrices(t *testing.T) {
	a, out, runs, dir := newTestApp(t)

	page := filepath.Join(dir, "vendor.html")
	writeFixture(t, dir, "vendor.html", `<table class="price-list">
		<tr><th>Kod</th><th>Ürün</th><th>Birim</th><th>Fiyat</th></tr>
		<tr><td>M2</td><td>Su</td><td>lt</td><td>2,50</td></tr>
	</table>`)

	if err := a.ImportPrices(context.Background(), page); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "Imported 1 prices (2 total)." {
		t.Errorf("Unexpected output %q", got)
	}

	rc, err := a.Costs().CalculateRecipeCost("R1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rc.TotalCost != 92.5 || len(rc.Warnings) != 0 {
		t.Errorf("Expected total 92.5 without warnings, got %v with %+v", rc.TotalCost, rc.Warnings)
	}

	store, _ := storage.NewDataStore(dir)
	saved, err := store.LoadPrices()
	if err != nil {
		t.Fatalf("Failed to reload prices: %v", err)
	}
	if len(saved) != 2 {
		t.Errorf("Expected 2 saved prices, got %d", len(saved))
	}
	if kinds := runs.kinds(); len(kinds) != 1 || kinds[0] != metrics.KindPriceImport {
		t.Errorf("Expected one price_import run, got %v", kinds)
	}

	if err := a.ImportPrices(context.Background(), filepath.Join(dir, "missing.html")); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

func TestCleanupMetrics(t *testing.T) {
	a, out, runs, _ := newTestApp(t)

	if err := a.CleanupMetrics(context.Background(), 7); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if runs.cleaned != 7 {
		t.Errorf("Expected cleanup of 7 days, got %d", runs.cleaned)
	}
	if got := strings.TrimSpace(out.String()); got != "Successfully removed 3 old metric records." {
		t.Errorf("Unexpected output %q", got)
	}

	a.runs = nil
	if err := a.CleanupMetrics(context.Background(), 7); err == nil {
		t.Error("Expected error without metrics store, got nil")
	}
}
