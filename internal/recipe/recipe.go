package recipe

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingID        = errors.New("recipe id is required")
	ErrMissingMaterial  = errors.New("ingredient material id is required")
	ErrDuplicateRecipes = errors.New("duplicate recipe id")
)

// Ingredient is a single line of a recipe, joined to the price catalog by
// MaterialID.
type Ingredient struct {
	MaterialID string  `json:"materialId" yaml:"material_id"`
	Name       string  `json:"name" yaml:"name"`
	Qty        float64 `json:"qty" yaml:"qty"`
	Unit       string  `json:"unit" yaml:"unit"`
}

// Recipe is a dish with its yield and ingredient list.
type Recipe struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Portions    int          `json:"portions" yaml:"portions"`
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`
}

// Validate checks the identifiers a recipe needs to be costed. Quantities
// and units are checked per ingredient during costing instead.
func (r Recipe) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	for i, ing := range r.Ingredients {
		if strings.TrimSpace(ing.MaterialID) == "" {
			return fmt.Errorf("recipe %s ingredient %d (%s): %w", r.ID, i, ing.Name, ErrMissingMaterial)
		}
	}
	return nil
}

// Clone returns a deep copy of the recipe.
func (r Recipe) Clone() Recipe {
	c := r
	c.Ingredients = append([]Ingredient(nil), r.Ingredients...)
	return c
}

// MaterialIDs returns the distinct material ids of the recipe in ingredient
// order.
func (r Recipe) MaterialIDs() []string {
	seen := make(map[string]struct{}, len(r.Ingredients))
	ids := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		if _, ok := seen[ing.MaterialID]; ok {
			continue
		}
		seen[ing.MaterialID] = struct{}{}
		ids = append(ids, ing.MaterialID)
	}
	return ids
}

// ValidateAll validates every recipe and rejects duplicate ids.
func ValidateAll(recipes []Recipe) error {
	seen := make(map[string]struct{}, len(recipes))
	for _, r := range recipes {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateRecipes, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
