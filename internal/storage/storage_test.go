package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"procheff/internal/pricing"
	"procheff/internal/recipe"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
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

const pricesYAML = `
prices:
  - material_id: M1
    price_try: 42.5
    unit: kg
    updated_at: 2026-10-01T00:00:00Z
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
        availability: available
        price_source:
          name: metro
          type: web
          confidence: 0.9
`

const planYAML = `
person_count: 120
days:
  - date: "2026-10-01"
    recipe_ids: [R1]
  - date: "2026-10-02"
    recipe_ids: []
`

func TestDataStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, recipesFile, recipesYAML)
	writeFile(t, dir, pricesFile, pricesYAML)
	writeFile(t, dir, productsFile, productsYAML)
	writeFile(t, dir, filepath.Join(plansDir, "ekim.yaml"), planYAML)
	writeFile(t, dir, filepath.Join(plansDir, "kasim.yaml"), "person_count: 1\ndays: []\n")

	store, err := NewDataStore(dir)
	if err != nil {
		t.Fatalf("Failed to create DataStore: %v", err)
	}

	t.Run("LoadRecipes", func(t *testing.T) {
		recipes, err := store.LoadRecipes()
		if err != nil {
			t.Fatalf("Failed to load recipes: %v", err)
		}
		if len(recipes) != 1 || len(recipes[0].Ingredients) != 2 {
			t.Fatalf("Expected 1 recipe with 2 ingredients, got %+v", recipes)
		}
		want := recipe.Ingredient{MaterialID: "M1", Name: "Kırmızı mercimek", Qty: 2, Unit: "kg"}
		if recipes[0].Ingredients[0] != want {
			t.Errorf("Expected %+v, got %+v", want, recipes[0].Ingredients[0])
		}
	})

	t.Run("LoadPrices", func(t *testing.T) {
		prices, err := store.LoadPrices()
		if err != nil {
			t.Fatalf("Failed to load prices: %v", err)
		}
		if len(prices) != 1 {
			t.Fatalf("Expected 1 price, got %d", len(prices))
		}
		if !prices[0].UpdatedAt.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("Unexpected updated_at %v", prices[0].UpdatedAt)
		}
		if prices[0].PriceTRY != 42.5 {
			t.Errorf("Expected price 42.5, got %v", prices[0].PriceTRY)
		}
	})

	t.Run("LoadProducts", func(t *testing.T) {
		products, err := store.LoadProducts()
		if err != nil {
			t.Fatalf("Failed to load products: %v", err)
		}
		if len(products) != 1 || len(products[0].Variants) != 1 {
			t.Fatalf("Expected 1 product with 1 variant, got %+v", products)
		}
		if v := products[0].Variants[0]; v.SizeUnit != "kg" || v.PriceSource.Confidence != 0.9 {
			t.Errorf("Unexpected variant %+v", v)
		}
	})

	t.Run("LoadPlan", func(t *testing.T) {
		plan, err := store.LoadPlan("ekim")
		if err != nil {
			t.Fatalf("Failed to load plan: %v", err)
		}
		if plan.PersonCount != 120 || len(plan.Days) != 2 {
			t.Fatalf("Unexpected plan %+v", plan)
		}
		if !plan.Days[0].IsComplete || plan.Days[1].IsComplete {
			t.Errorf("Expected IsComplete derived from recipe ids, got %+v", plan.Days)
		}
	})

	t.Run("LoadPlan-NotFound", func(t *testing.T) {
		if _, err := store.LoadPlan("aralik"); !errors.Is(err, ErrPlanNotFound) {
			t.Errorf("Expected ErrPlanNotFound, got %v", err)
		}
	})

	t.Run("LoadPlan-InvalidName", func(t *testing.T) {
		for _, name := range []string{"", "..", "../recipes", `a\b`} {
			if _, err := store.LoadPlan(name); !errors.Is(err, ErrInvalidPlanName) {
				t.Errorf("Name %q: expected ErrInvalidPlanName, got %v", name, err)
			}
		}
	})

	t.Run("ListPlans", func(t *testing.T) {
		names, err := store.ListPlans()
		if err != nil {
			t.Fatalf("Failed to list plans: %v", err)
		}
		if want := []string{"ekim", "kasim"}; !reflect.DeepEqual(names, want) {
			t.Errorf("Expected %v, got %v", want, names)
		}
	})

	t.Run("SavePrices", func(t *testing.T) {
		updated := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
		in := []pricing.Price{
			{MaterialID: "M2", PriceTRY: 1.25, Unit: "lt", UpdatedAt: updated},
			{MaterialID: "M1", PriceTRY: 44, Unit: "kg", UpdatedAt: updated},
		}
		if err := store.SavePrices(in); err != nil {
			t.Fatalf("Failed to save prices: %v", err)
		}

		got, err := store.LoadPrices()
		if err != nil {
			t.Fatalf("Failed to load prices: %v", err)
		}
		if len(got) != 2 || got[0].MaterialID != "M1" || got[1].MaterialID != "M2" {
			t.Fatalf("Expected prices sorted by material id, got %+v", got)
		}
		if !got[1].UpdatedAt.Equal(updated) || got[1].Unit != "lt" {
			t.Errorf("Unexpected saved price %+v", got[1])
		}
		if _, err := os.Stat(filepath.Join(dir, pricesFile+".tmp")); !os.IsNotExist(err) {
			t.Error("Expected the temp file to be gone")
		}
	})
}

func TestDataStore_MissingAndMalformed(t *testing.T) {
	t.Run("MissingFiles", func(t *testing.T) {
		store, err := NewDataStore(filepath.Join(t.TempDir(), "new"))
		if err != nil {
			t.Fatalf("Failed to create DataStore: %v", err)
		}
		recipes, err := store.LoadRecipes()
		if err != nil || recipes == nil || len(recipes) != 0 {
			t.Errorf("Expected empty recipes, got %v (%v)", recipes, err)
		}
		products, err := store.LoadProducts()
		if err != nil || len(products) != 0 {
			t.Errorf("Expected no products, got %v (%v)", products, err)
		}
		plans, err := store.ListPlans()
		if err != nil || len(plans) != 0 {
			t.Errorf("Expected no plans, got %v (%v)", plans, err)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, pricesFile, "prices: [unterminated")
		store, _ := NewDataStore(dir)
		if _, err := store.LoadPrices(); err == nil {
			t.Fatal("Expected an error for malformed YAML, got nil")
		}
	})

	t.Run("DuplicateRecipes", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, recipesFile, "recipes:\n  - id: R1\n  - id: R1\n")
		store, _ := NewDataStore(dir)
		if _, err := store.LoadRecipes(); !errors.Is(err, recipe.ErrDuplicateRecipes) {
			t.Errorf("Expected ErrDuplicateRecipes, got %v", err)
		}
	})

	t.Run("DuplicatePlanDates", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, filepath.Join(plansDir, "dup.yaml"),
			"person_count: 1\ndays:\n  - date: \"2026-10-01\"\n  - date: \"2026-10-01\"\n")
		store, _ := NewDataStore(dir)
		if _, err := store.LoadPlan("dup"); err == nil {
			t.Fatal("Expected an error for duplicate dates, got nil")
		}
	})
}
