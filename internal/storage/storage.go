package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"procheff/internal/planner"
	"procheff/internal/pricing"
	"procheff/internal/recipe"
	"procheff/internal/variant"
)

const (
	recipesFile  = "recipes.yaml"
	pricesFile   = "prices.yaml"
	productsFile = "products.yaml"
	plansDir     = "plans"
	planExt      = ".yaml"
)

var (
	ErrPlanNotFound    = errors.New("plan not found")
	ErrInvalidPlanName = errors.New("invalid plan name")
)

type recipesDoc struct {
	Recipes []recipe.Recipe `yaml:"recipes"`
}

type pricesDoc struct {
	Prices []pricing.Price `yaml:"prices"`
}

type productsDoc struct {
	Products []variant.Product `yaml:"products"`
}

// DataStore reads and writes the YAML fixture files under a data directory.
type DataStore struct {
	basePath string
}

// NewDataStore creates a new DataStore and ensures the base directory exists.
func NewDataStore(basePath string) (*DataStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", basePath, err)
	}
	return &DataStore{basePath: basePath}, nil
}

// BasePath returns the data directory.
func (s *DataStore) BasePath() string {
	return s.basePath
}

// LoadRecipes reads recipes.yaml. A missing file yields no recipes.
func (s *DataStore) LoadRecipes() ([]recipe.Recipe, error) {
	var doc recipesDoc
	if err := s.readYAML(recipesFile, &doc); err != nil {
		return nil, err
	}
	if err := recipe.ValidateAll(doc.Recipes); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", recipesFile, err)
	}
	return nonNil(doc.Recipes), nil
}

// LoadPrices reads prices.yaml. A missing file yields no prices.
func (s *DataStore) LoadPrices() ([]pricing.Price, error) {
	var doc pricesDoc
	if err := s.readYAML(pricesFile, &doc); err != nil {
		return nil, err
	}
	return nonNil(doc.Prices), nil
}

// SavePrices replaces prices.yaml, sorted by material id.
func (s *DataStore) SavePrices(prices []pricing.Price) error {
	sorted := slices.Clone(prices)
	slices.SortFunc(sorted, func(a, b pricing.Price) int {
		return strings.Compare(a.MaterialID, b.MaterialID)
	})
	return s.writeYAML(pricesFile, pricesDoc{Prices: sorted})
}

// LoadProducts reads products.yaml. A missing file yields no products.
func (s *DataStore) LoadProducts() ([]variant.Product, error) {
	var doc productsDoc
	if err := s.readYAML(productsFile, &doc); err != nil {
		return nil, err
	}
	return nonNil(doc.Products), nil
}

// LoadPlan reads plans/<name>.yaml.
func (s *DataStore) LoadPlan(name string) (planner.MonthPlan, error) {
	if err := validatePlanName(name); err != nil {
		return planner.MonthPlan{}, err
	}
	rel := filepath.Join(plansDir, name+planExt)
	if _, err := os.Stat(filepath.Join(s.basePath, rel)); os.IsNotExist(err) {
		return planner.MonthPlan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, name)
	}

	var plan planner.MonthPlan
	if err := s.readYAML(rel, &plan); err != nil {
		return planner.MonthPlan{}, err
	}
	// Fixture files may omit is_complete.
	for i := range plan.Days {
		plan.Days[i].IsComplete = plan.Days[i].Complete()
	}
	if err := plan.Validate(); err != nil {
		return planner.MonthPlan{}, fmt.Errorf("invalid plan %s: %w", name, err)
	}
	return plan, nil
}

// ListPlans returns the names of all stored plans, sorted.
func (s *DataStore) ListPlans() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, plansDir, "*"+planExt))
	if err != nil {
		return nil, fmt.Errorf("failed to glob plan files: %w", err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), planExt))
	}
	slices.Sort(names)
	return names, nil
}

func validatePlanName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidPlanName, name)
	}
	return nil
}

func (s *DataStore) readYAML(rel string, out any) error {
	data, err := os.ReadFile(filepath.Join(s.basePath, rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", rel, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", rel, err)
	}
	return nil
}

// writeYAML writes through a temp file so readers never see a partial file.
func (s *DataStore) writeYAML(rel string, in any) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", rel, err)
	}

	path := filepath.Join(s.basePath, rel)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", rel, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
