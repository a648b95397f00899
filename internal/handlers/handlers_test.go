package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/realmall/storefront/internal/cart"
	"github.com/realmall/storefront/internal/editor"
	"github.com/realmall/storefront/internal/images"
	"github.com/realmall/storefront/internal/models"
	"github.com/realmall/storefront/internal/providers"
	"github.com/realmall/storefront/internal/storage"
	"github.com/realmall/storefront/internal/storefront"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEditor struct {
	mu   sync.Mutex
	err  error
	gate chan struct{}
}

func (f *fakeEditor) EditImage(ctx context.Context, req providers.EditRequest) (*providers.EditedImage, error) {
	f.mu.Lock()
	err, gate := f.err, f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &providers.EditedImage{Data: []byte("edited:" + req.Prompt), MediaType: "image/png"}, nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, ref images.Ref) ([]byte, string, error) {
	switch ref.Kind() {
	case images.KindInline:
		return ref.Data(), ref.MediaType(), nil
	case images.KindRemote:
		return []byte("remote:" + ref.URI()), "image/jpeg", nil
	}
	return nil, "", errors.New("empty ref")
}

func setupTestServer(t *testing.T, ed *fakeEditor) *httptest.Server {
	t.Helper()
	catalog := storage.New([]models.Product{
		{ID: "w1", Name: "Astral", Category: models.CategoryWatch, Price: decimal.RequireFromString("1250.00"), Image: images.Remote("https://img/w1.jpg"), Rating: 4.8},
		{ID: "s1", Name: "Aviator", Category: models.CategorySunglasses, Price: decimal.RequireFromString("320.50"), Image: images.Remote("https://img/s1.jpg"), Rating: 4.5},
		{ID: "w2", Name: "Diver", Category: models.CategoryWatch, Price: decimal.RequireFromString("899.99"), Image: images.Remote("https://img/w2.jpg"), Rating: 4.6},
	})
	sf := storefront.New(catalog, cart.New(), ed, fakeResolver{}, storefront.WithEditTimeout(5*time.Second))
	srv := httptest.NewServer(New(sf, fakeResolver{}).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type cartBody struct {
	Lines []struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	} `json:"lines"`
	Count    int    `json:"count"`
	Subtotal string `json:"subtotal"`
}

func TestHealthcheck(t *testing.T) {
	srv := setupTestServer(t, &fakeEditor{})
	resp := do(t, srv, http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "OK", string(b))
}

func TestListProducts(t *testing.T) {
	srv := setupTestServer(t, &fakeEditor{})

	tests := []struct {
		query    string
		wantCode int
		wantIDs  []string
	}{
		{query: "", wantCode: http.StatusOK, wantIDs: []string{"w1", "s1", "w2"}},
		{query: "?category=all", wantCode: http.StatusOK, wantIDs: []string{"w1", "s1", "w2"}},
		{query: "?category=watch", wantCode: http.StatusOK, wantIDs: []string{"w1", "w2"}},
		{query: "?category=sunglasses", wantCode: http.StatusOK, wantIDs: []string{"s1"}},
		{query: "?category=hats", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := do(t, srv, http.MethodGet, "/api/products"+tt.query, nil)
			require.Equal(t, tt.wantCode, resp.StatusCode)
			if tt.wantCode != http.StatusOK {
				body := decodeBody[errorResponse](t, resp)
				assert.Contains(t, body.Error, "unknown category")
				return
			}
			body := decodeBody[productList](t, resp)
			var ids []string
			for _, p := range body.Products {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGetProduct(t *testing.T) {
	srv := setupTestServer(t, &fakeEditor{})

	resp := do(t, srv, http.MethodGet, "/api/products/s1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decodeBody[models.Product](t, resp)
	assert.Equal(t, "Aviator", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("320.5")))
	assert.True(t, p.Image.Equal(images.Remote("https://img/s1.jpg")))

	resp = do(t, srv, http.MethodGet, "/api/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCartFlow(t *testing.T) {
	srv := setupTestServer(t, &fakeEditor{})

	resp := do(t, srv, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decodeBody[cartBody](t, resp)
	assert.Equal(t, 0, empty.Count)
	assert.Equal(t, "0", empty.Subtotal)

	do(t, srv, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "w1"})
	do(t, srv, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "s1"})
	resp = do(t, srv, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "w1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[cartBody](t, resp)
	require.Len(t, body.Lines, 2)
	assert.Equal(t, "w1", body.Lines[0].ID)
	assert.Equal(t, 2, body.Lines[0].Quantity)
	assert.Equal(t, "s1", body.Lines[1].ID)
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, "2820.5", body.Subtotal)

	resp = do(t, srv, http.MethodDelete, "/api/cart/items/w1", nil)
	body = decodeBody[cartBody](t, resp)
	require.Len(t, body.Lines, 1)
	assert.Equal(t, 1, body.Count)

	// Removing an id that is not in the cart changes nothing.
	resp = do(t, srv, http.MethodDelete, "/api/cart/items/w9", nil)
	assert.Equal(t, 1, decodeBody[cartBody](t, resp).Count)

	resp = do(t, srv, http.MethodDelete, "/api/cart", nil)
	assert.Equal(t, 0, decodeBody[cartBody](t, resp).Count)
}

func TestAddCartItemErrors(t *testing.T) {
	srv := setupTestServer(t, &fakeEditor{})

	tests := []struct {
		name     string
		body     any
		wantCode int
	}{
		{name: "unknown product", body: map[string]string{"product_id": "nope"}, wantCode: http.StatusNotFound},
		{name: "missing product id", body: map[string]string{}, wantCode: http.StatusBadRequest},
		{name: "wrong type", body: map[string]int{"product_id": 7}, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, srv, http.MethodPost, "/api/cart/items", tt.body)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
}

func TestEditorRequiresOpenSession(t *testing.T) {
	srv := setupTestServer(t, &fakeEditor{})

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/editor"},
		{http.MethodGet, "/api/editor/image"},
		{http.MethodPost, "/api/editor/generate"},
		{http.MethodPost, "/api/editor/generate?async=1"},
		{http.MethodPost, "/api/editor/undo"},
		{http.MethodPost, "/api/editor/commit"},
	} {
		resp := do(t, srv, r.method, r.path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, r.path)
	}

	resp := do(t, srv, http.MethodPost, "/api/editor", map[string]string{"product_id": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEditorFlow(t *testing.T) {
	srv := setupTestServer(t, &fakeEditor{})

	resp := do(t, srv, http.MethodPost, "/api/editor", map[string]string{"product_id": "w1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	view := decodeBody[editor.View](t, resp)
	sessionID := view.ID
	assert.Equal(t, "w1", view.ProductID)
	assert.Equal(t, 1, view.HistoryDepth)
	assert.False(t, view.CanGenerate)

	resp = do(t, srv, http.MethodGet, "/api/editor/image", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "remote:https://img/w1.jpg", string(b))

	// Blank prompt is rejected without calling the editor.
	resp = do(t, srv, http.MethodPost, "/api/editor/generate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodPut, "/api/editor/prompt", map[string]string{"prompt": "gold"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeBody[editor.View](t, resp).CanGenerate)

	resp = do(t, srv, http.MethodPost, "/api/editor/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decodeBody[editor.View](t, resp)
	assert.Equal(t, 2, view.HistoryDepth)
	assert.Empty(t, view.Prompt)
	assert.Empty(t, view.Error)
	assert.True(t, view.CanUndo)
	assert.Equal(t, "data:image/png;base64,ZWRpdGVkOmdvbGQ=", view.Current.String())

	resp = do(t, srv, http.MethodGet, "/api/editor/image", nil)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	b, _ = io.ReadAll(resp.Body)
	assert.Equal(t, "edited:gold", string(b))

	resp = do(t, srv, http.MethodPost, "/api/editor/undo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeBody[editor.View](t, resp).HistoryDepth)

	resp = do(t, srv, http.MethodPost, "/api/editor/undo", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	do(t, srv, http.MethodPut, "/api/editor/prompt", map[string]string{"prompt": "silver"})
	do(t, srv, http.MethodPost, "/api/editor/generate", nil)

	resp = do(t, srv, http.MethodPost, "/api/editor/commit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	committed := decodeBody[commitResponse](t, resp)
	assert.True(t, committed.Committed)
	assert.Equal(t, sessionID, committed.SessionID)
	require.NotNil(t, committed.Product)
	assert.True(t, committed.Product.Image.Equal(images.Inline([]byte("edited:silver"), "image/png")))

	resp = do(t, srv, http.MethodGet, "/api/editor", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/api/products/w2", nil)
	assert.True(t, decodeBody[models.Product](t, resp).Image.Equal(images.Remote("https://img/w2.jpg")))
}

func TestGenerateFailureIsAbsorbed(t *testing.T) {
	srv := setupTestServer(t, &fakeEditor{err: errors.New("quota exceeded")})

	do(t, srv, http.MethodPost, "/api/editor", map[string]string{"product_id": "s1"})
	do(t, srv, http.MethodPut, "/api/editor/prompt", map[string]string{"prompt": "beach"})

	resp := do(t, srv, http.MethodPost, "/api/editor/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeBody[editor.View](t, resp)
	assert.Equal(t, editor.FailureMessage, view.Error)
	assert.Equal(t, "beach", view.Prompt)
	assert.Equal(t, 1, view.HistoryDepth)
}

func TestPromptAndPresets(t *testing.T) {
	srv := setupTestServer(t, &fakeEditor{})
	do(t, srv, http.MethodPost, "/api/editor", map[string]string{"product_id": "w1"})

	resp := do(t, srv, http.MethodPut, "/api/editor/prompt", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, srv, http.MethodPut, "/api/editor/prompt", map[string]string{"prompt": ""})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", decodeBody[editor.View](t, resp).Prompt)

	resp = do(t, srv, http.MethodPost, "/api/editor/presets", map[string]string{"preset": "Studio Light"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Apply a studio light effect to this image.", decodeBody[editor.View](t, resp).Prompt)

	resp = do(t, srv, http.MethodPost, "/api/editor/presets", map[string]string{"preset": "Vaporwave"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAsyncGenerateAndClose(t *testing.T) {
	ed := &fakeEditor{gate: make(chan struct{})}
	srv := setupTestServer(t, ed)

	do(t, srv, http.MethodPost, "/api/editor", map[string]string{"product_id": "w1"})
	do(t, srv, http.MethodPut, "/api/editor/prompt", map[string]string{"prompt": "gold"})

	resp := do(t, srv, http.MethodPost, "/api/editor/generate?async=1", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.True(t, decodeBody[editor.View](t, resp).Processing)

	resp = do(t, srv, http.MethodPost, "/api/editor/generate?async=1", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodPost, "/api/editor/commit", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodDelete, "/api/editor", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/api/products/w1", nil)
	assert.True(t, decodeBody[models.Product](t, resp).Image.Equal(images.Remote("https://img/w1.jpg")))
}

func TestAsyncGenerateCompletes(t *testing.T) {
	srv := setupTestServer(t, &fakeEditor{})

	do(t, srv, http.MethodPost, "/api/editor", map[string]string{"product_id": "w1"})
	do(t, srv, http.MethodPut, "/api/editor/prompt", map[string]string{"prompt": "gold"})

	resp := do(t, srv, http.MethodPost, "/api/editor/generate?async=true", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	assert.Eventually(t, func() bool {
		resp := do(t, srv, http.MethodGet, "/api/editor", nil)
		return decodeBody[editor.View](t, resp).HistoryDepth == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRequestBodyTooLarge(t *testing.T) {
	srv := setupTestServer(t, &fakeEditor{})
	do(t, srv, http.MethodPost, "/api/editor", map[string]string{"product_id": "w1"})

	huge := strings.Repeat("a", maxRequestBytes+1)
	resp := do(t, srv, http.MethodPut, "/api/editor/prompt", map[string]string{"prompt": huge})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Contains(t, decodeBody[errorResponse](t, resp).Error, "too large")

	resp = do(t, srv, http.MethodGet, "/api/editor", nil)
	assert.Empty(t, decodeBody[editor.View](t, resp).Prompt)
}
