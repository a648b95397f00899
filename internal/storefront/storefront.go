package storefront

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/realmall/storefront/internal/cart"
	"github.com/realmall/storefront/internal/editor"
	"github.com/realmall/storefront/internal/models"
	"github.com/realmall/storefront/internal/providers"
	"github.com/realmall/storefront/internal/storage"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrNoActiveEditor  = errors.New("no image editor is open")
)

// Storefront owns the catalog, the cart and at most one active edit session.
type Storefront struct {
	catalog  *storage.ProductStore
	cart     *cart.Cart
	editor   providers.ImageEditor
	resolver editor.Resolver

	editTimeout time.Duration

	mu     sync.Mutex
	active *editor.Session
}

// Option configures a Storefront.
type Option func(*Storefront)

// WithEditTimeout bounds each image-edit request.
func WithEditTimeout(d time.Duration) Option {
	return func(s *Storefront) { s.editTimeout = d }
}

func New(catalog *storage.ProductStore, c *cart.Cart, imageEditor providers.ImageEditor, resolver editor.Resolver, opts ...Option) *Storefront {
	s := &Storefront{
		catalog:     catalog,
		cart:        c,
		editor:      imageEditor,
		resolver:    resolver,
		editTimeout: 90 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storefront) Catalog() *storage.ProductStore { return s.catalog }

func (s *Storefront) Cart() *cart.Cart { return s.cart }

// AddToCart adds the catalog's current version of productID to the cart.
func (s *Storefront) AddToCart(productID string) error {
	p, ok := s.catalog.Get(productID)
	if !ok {
		return ErrProductNotFound
	}
	s.cart.Add(p)
	return nil
}

// OpenEditor starts an edit session for productID, closing any session that
// was already open.
func (s *Storefront) OpenEditor(productID string) (*editor.Session, error) {
	p, ok := s.catalog.Get(productID)
	if !ok {
		return nil, ErrProductNotFound
	}

	session := editor.Open(p, s.editor, s.resolver)

	s.mu.Lock()
	previous := s.active
	s.active = session
	s.mu.Unlock()

	if previous != nil {
		previous.Close()
		slog.Info("Replaced open editor", "previous_session_id", previous.ID(), "product_id", previous.ProductID())
	}
	slog.Info("Editor opened", "session_id", session.ID(), "product_id", productID)
	return session, nil
}

// Editor returns the active session.
func (s *Storefront) Editor() (*editor.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, ErrNoActiveEditor
	}
	return s.active, nil
}

// Generate submits the active session and waits for the result. It returns
// the session it submitted.
func (s *Storefront) Generate(ctx context.Context) (*editor.Session, editor.Outcome, error) {
	session, err := s.Editor()
	if err != nil {
		return nil, 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.editTimeout)
	defer cancel()
	return session, session.Submit(ctx), nil
}

// GenerateAsync starts a submit detached from the caller. When it reports
// true the session is already processing; the result lands on the session
// only if it is still open when the request completes.
func (s *Storefront) GenerateAsync() (*editor.Session, bool, error) {
	session, err := s.Editor()
	if err != nil {
		return nil, false, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.editTimeout)
	done := session.Start(ctx)
	if done == nil {
		cancel()
		return session, false, nil
	}

	go func() {
		defer cancel()
		outcome := <-done
		slog.Debug("Background edit finished", "session_id", session.ID(), "outcome", outcome)
	}()
	return session, true, nil
}

// CloseEditor discards the active session, if any.
func (s *Storefront) CloseEditor() {
	s.mu.Lock()
	session := s.active
	s.active = nil
	s.mu.Unlock()

	if session != nil {
		session.Close()
		slog.Info("Editor closed", "session_id", session.ID(), "product_id", session.ProductID())
	}
}

// CommitEditor writes the active session's current image into the catalog
// and clears the session. It returns the session it acted on and reports
// false when the commit was rejected because a request is still in flight.
func (s *Storefront) CommitEditor() (*editor.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.active
	if session == nil {
		return nil, false, ErrNoActiveEditor
	}
	if !session.Commit(s.catalog) {
		return session, false, nil
	}

	slog.Info("Editor committed", "session_id", session.ID(), "product_id", session.ProductID())
	s.active = nil
	return session, true, nil
}

// Products returns the catalog filtered by category.
func (s *Storefront) Products(category models.Category) []models.Product {
	return s.catalog.FilterByCategory(category)
}
