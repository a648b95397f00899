package storage

import (
	"sync"

	"github.com/realmall/storefront/internal/images"
	"github.com/realmall/storefront/internal/models"
)

// ProductStore holds the in-memory catalog. Product order is the catalog
// order and never changes; only product images are mutable.
type ProductStore struct {
	products []models.Product
	index    map[string]int
	mu       sync.RWMutex
}

func New(products []models.Product) *ProductStore {
	s := &ProductStore{
		products: make([]models.Product, len(products)),
		index:    make(map[string]int, len(products)),
	}
	copy(s.products, products)
	for i, p := range s.products {
		s.index[p.ID] = i
	}
	return s
}

func (s *ProductStore) Get(productID string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, exists := s.index[productID]
	if !exists {
		return models.Product{}, false
	}
	return s.products[i], true
}

// Products returns a copy of the full catalog in catalog order.
func (s *ProductStore) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Product, len(s.products))
	copy(result, s.products)
	return result
}

// FilterByCategory returns the products in category, preserving catalog
// order. CategoryAll returns the whole catalog.
func (s *ProductStore) FilterByCategory(category models.Category) []models.Product {
	if category == models.CategoryAll {
		return s.Products()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Category == category {
			result = append(result, p)
		}
	}
	return result
}

// ApplyEditedImage replaces the image of productID and reports whether the
// product exists. Unknown ids are ignored.
func (s *ProductStore) ApplyEditedImage(productID string, image images.Ref) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, exists := s.index[productID]
	if !exists {
		return false
	}
	s.products[i].Image = image
	return true
}

func (s *ProductStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}
