package cart

import (
	"sync"

	"github.com/realmall/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// Cart holds the user's selected products, one line per product id, in the
// order they were first added.
type Cart struct {
	lines []models.CartLine
	mu    sync.RWMutex
}

func New() *Cart {
	return &Cart{}
}

// Add increments the quantity of an existing line for product.ID or appends
// a new line with quantity 1.
func (c *Cart) Add(product models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ID == product.ID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, models.CartLine{Product: product, Quantity: 1})
}

// Remove deletes the line for productID. Absent ids are ignored.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}

// Lines returns a copy of the cart lines in order.
func (c *Cart) Lines() []models.CartLine {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]models.CartLine, len(c.lines))
	copy(result, c.lines)
	return result
}

// Count is the sum of all quantities (the badge number).
func (c *Cart) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

// Subtotal is the exact sum of price × quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Summary is a consistent view of the cart for display.
type Summary struct {
	Lines    []models.CartLine `json:"lines"`
	Count    int               `json:"count"`
	Subtotal decimal.Decimal   `json:"subtotal"`
}

func (c *Cart) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Summary{
		Lines:    make([]models.CartLine, len(c.lines)),
		Subtotal: decimal.Zero,
	}
	copy(s.Lines, c.lines)
	for _, l := range c.lines {
		s.Count += l.Quantity
		s.Subtotal = s.Subtotal.Add(l.LineTotal())
	}
	return s
}
