package variant

import (
	"errors"
	"time"
)

var (
	ErrNoVariants       = errors.New("product has no variants")
	ErrVariantNotFound  = errors.New("variant not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidQuantity  = errors.New("required quantity must be positive")
	ErrInvalidPackaging = errors.New("invalid package size")
)

// Availability describes whether a variant can currently be bought.
type Availability string

const (
	Available  Availability = "available"
	Limited    Availability = "limited"
	OutOfStock Availability = "out_of_stock"
)

// PriceTrend is the recent price movement reported for a variant.
type PriceTrend struct {
	Direction  string  `json:"direction" yaml:"direction"` // up, down or stable
	Percentage float64 `json:"percentage" yaml:"percentage"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Period     string  `json:"period" yaml:"period"`
}

// PriceSource names where a variant price was observed.
type PriceSource struct {
	Name       string  `json:"name" yaml:"name"`
	Type       string  `json:"type" yaml:"type"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ProductVariant is one purchasable package of a product.
type ProductVariant struct {
	ID           string       `json:"id" yaml:"id" validate:"required"`
	Vendor       string       `json:"vendor" yaml:"vendor"`
	Size         float64      `json:"size" yaml:"size" validate:"gt=0"`
	SizeUnit     string       `json:"sizeUnit" yaml:"size_unit" validate:"required"`
	Price        float64      `json:"price" yaml:"price" validate:"gte=0"`
	UnitPrice    float64      `json:"unitPrice" yaml:"unit_price"`
	IsBasePrice  bool         `json:"isBasePrice" yaml:"is_base_price"`
	Availability Availability `json:"availability" yaml:"availability"`
	Trend        PriceTrend   `json:"trend" yaml:"trend"`
	PriceSource  PriceSource  `json:"priceSource" yaml:"price_source"`
	LastUpdated  time.Time    `json:"lastUpdated" yaml:"last_updated"`
}

// Product groups the variants of a single material. BaseUnit is the unit
// unit prices are expressed in.
type Product struct {
	ID       string           `json:"id" yaml:"id" validate:"required"`
	Name     string           `json:"name" yaml:"name"`
	Category string           `json:"category" yaml:"category"`
	BaseUnit string           `json:"baseUnit" yaml:"base_unit"`
	Variants []ProductVariant `json:"variants" yaml:"variants" validate:"dive"`
}

// Clone returns a deep copy of the product.
func (p Product) Clone() Product {
	c := p
	if p.Variants != nil {
		c.Variants = make([]ProductVariant, len(p.Variants))
		copy(c.Variants, p.Variants)
	}
	return c
}

// Variant looks up a variant by id.
func (p Product) Variant(id string) (ProductVariant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return ProductVariant{}, false
}

// SimulationInput describes a purchase to simulate.
type SimulationInput struct {
	RequiredQuantity  float64 `json:"requiredQuantity" validate:"gt=0"`
	RequiredUnit      string  `json:"requiredUnit"`
	SelectedVariantID string  `json:"selectedVariantId"`
	TargetBudget      float64 `json:"targetBudget" validate:"gte=0"`
}

// BudgetAnalysis compares a simulated purchase against a target budget.
type BudgetAnalysis struct {
	TargetBudget     float64 `json:"targetBudget"`
	IsWithinBudget   bool    `json:"isWithinBudget"`
	BudgetUsage      float64 `json:"budgetUsage"`
	SavingsOrOverrun float64 `json:"savingsOrOverrun"`
}

// Purchase is the outcome of covering a required quantity with whole
// packages of one variant. Quantities are in the variant's size unit.
type Purchase struct {
	Variant          ProductVariant `json:"variant"`
	RequiredQuantity float64        `json:"requiredQuantity"`
	PackageCount     int            `json:"packageCount"`
	Quantity         float64        `json:"quantity"`
	RemainingAmount  float64        `json:"remainingAmount"`
	TotalCost        float64        `json:"totalCost"`
}

// Alternative is a purchase with another variant. Savings is positive when
// the alternative is cheaper than the selected variant.
type Alternative struct {
	Purchase
	Savings float64 `json:"savings"`
}

// SimulationResult is returned by CostSimulationEngine.Simulate.
type SimulationResult struct {
	ProductID      string          `json:"productId"`
	ProductName    string          `json:"productName"`
	Selected       Purchase        `json:"selected"`
	BudgetAnalysis *BudgetAnalysis `json:"budgetAnalysis,omitempty"`
	Alternatives   []Alternative   `json:"alternatives"`
}

// PriceRange summarizes variant unit prices. Spread is (Max-Min)/Min as a
// percentage.
type PriceRange struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Spread float64 `json:"spread"`
}

// ProductComparison is returned by ProductComparisonEngine.CreateComparison.
type ProductComparison struct {
	ProductID         string         `json:"productId"`
	ProductName       string         `json:"productName"`
	BaseUnit          string         `json:"baseUnit"`
	BaseUnitPrice     float64        `json:"baseUnitPrice"`
	PriceRange        PriceRange     `json:"priceRange"`
	MarketCoverage    []string       `json:"marketCoverage"`
	AverageConfidence float64        `json:"averageConfidence"`
	BestVariant       ProductVariant `json:"bestVariant"`
	VariantCount      int            `json:"variantCount"`
}
