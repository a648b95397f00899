package models

import (
	"fmt"

	"github.com/realmall/storefront/internal/images"
	"github.com/shopspring/decimal"
)

// Category groups products in the storefront
type Category string

const (
	CategoryWatch      Category = "watch"
	CategorySunglasses Category = "sunglasses"

	// CategoryAll is the filter value that matches every product.
	CategoryAll Category = "all"
)

// Categories lists the product categories in display order.
var Categories = []Category{CategoryWatch, CategorySunglasses}

// ParseCategoryFilter validates a filter value ("all" or a category).
func ParseCategoryFilter(s string) (Category, error) {
	switch c := Category(s); c {
	case "", CategoryAll:
		return CategoryAll, nil
	case CategoryWatch, CategorySunglasses:
		return c, nil
	default:
		return "", fmt.Errorf("unknown category %q (expected all, watch or sunglasses)", s)
	}
}

// Product represents a purchasable catalog item
type Product struct {
	ID          string          `json:"id" yaml:"id" validate:"required"`
	Name        string          `json:"name" yaml:"name" validate:"required"`
	Category    Category        `json:"category" yaml:"category" validate:"required,oneof=watch sunglasses"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	Description string          `json:"description" yaml:"description"`
	Image       images.Ref      `json:"image" yaml:"image"`
	Rating      float64         `json:"rating" yaml:"rating" validate:"gte=0,lte=5"`
}

// CartLine is a product snapshot with the quantity selected
type CartLine struct {
	Product
	Quantity int `json:"quantity"`
}

// LineTotal returns price × quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
