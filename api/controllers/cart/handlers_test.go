package cart

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/servicecart/api/middleware"
	cartsvc "github.com/angelmondragon/servicecart/internal/cart"
)

const testVisitor = "0190f3c4-7d1e-7c8a-9b2a-1f2e3d4c5b6a"

func newTestRouter(t *testing.T) (http.Handler, *cartsvc.Registry) {
	t.Helper()
	registry, err := cartsvc.NewRegistry(cartsvc.RegistryParams{Backend: cartsvc.NewMemorySlot()})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithVisitorID(req.Context(), testVisitor)))
		})
	})
	r.Get("/cart", Fetch(registry, nil))
	r.Delete("/cart", Clear(registry, nil))
	r.Get("/cart/contains", Contains(registry, nil))
	r.Get("/cart/events", Events(registry, time.Hour, nil))
	r.Post("/cart/items", AddItem(registry, nil))
	r.Patch("/cart/items/{itemId}", UpdateQuantity(registry, nil))
	r.Delete("/cart/items/{itemId}", RemoveItem(registry, nil))
	return r, registry
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
	return envelope.Data
}

func TestFetchEmptyCart(t *testing.T) {
	h, _ := newTestRouter(t)

	resp := do(t, h, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"data":{"items":[],"subtotal":0,"total":0,"itemCount":0}}`, resp.Body.String())
}

func TestAddItemMergesAndTotals(t *testing.T) {
	h, _ := newTestRouter(t)

	body := `{"title":"Logo Design","category":"Branding","basePrice":500,"estimatedDuration":"1 week"}`
	first := do(t, h, http.MethodPost, "/cart/items", body)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	added := decodeData[addItemResponse](t, first)
	assert.Equal(t, 1, added.Item.Quantity)
	assert.NotEmpty(t, added.Item.ID)

	second := do(t, h, http.MethodPost, "/cart/items", `{"title":"Logo Design","category":"Branding","basePrice":500,"quantity":2}`)
	require.Equal(t, http.StatusCreated, second.Code)
	merged := decodeData[addItemResponse](t, second)
	assert.Equal(t, added.Item.ID, merged.Item.ID)
	assert.Equal(t, 3, merged.Item.Quantity)
	assert.Equal(t, 1500.0, merged.Cart.Subtotal)
	assert.Equal(t, 3, merged.Cart.ItemCount)
}

func TestAddItemRejectsBadInput(t *testing.T) {
	h, registry := newTestRouter(t)

	cases := []string{
		`{"category":"Branding","basePrice":500}`,
		`{"title":"Logo Design","basePrice":500,"quantity":-1}`,
		`{"title":"Logo Design","basePrice":-5}`,
		`{"title":"Logo Design","price":5}`,
		`not json`,
	}
	for _, body := range cases {
		resp := do(t, h, http.MethodPost, "/cart/items", body)
		assert.Equal(t, http.StatusBadRequest, resp.Code, body)
	}

	store, err := registry.Get(context.Background(), testVisitor)
	require.NoError(t, err)
	assert.Empty(t, store.Items())
}

func TestUpdateQuantityAndRemove(t *testing.T) {
	h, _ := newTestRouter(t)

	added := decodeData[addItemResponse](t, do(t, h, http.MethodPost, "/cart/items", `{"title":"SEO Audit","category":"Marketing","basePrice":250}`))
	id := added.Item.ID

	resp := do(t, h, http.MethodPatch, "/cart/items/"+id, `{"quantity":4}`)
	require.Equal(t, http.StatusOK, resp.Code)
	snapshot := decodeData[cartsvc.Snapshot](t, resp)
	assert.Equal(t, 1000.0, snapshot.Total)

	resp = do(t, h, http.MethodPatch, "/cart/items/"+id, `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, h, http.MethodPatch, "/cart/items/"+id, `{"quantity":0}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decodeData[cartsvc.Snapshot](t, resp).Items)

	resp = do(t, h, http.MethodDelete, "/cart/items/unknown", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decodeData[cartsvc.Snapshot](t, resp).Items)
}

func TestRemoveAndClear(t *testing.T) {
	h, _ := newTestRouter(t)

	logo := decodeData[addItemResponse](t, do(t, h, http.MethodPost, "/cart/items", `{"title":"Logo Design","category":"Branding","basePrice":500}`))
	do(t, h, http.MethodPost, "/cart/items", `{"title":"SEO Audit","category":"Marketing","basePrice":250}`)

	resp := do(t, h, http.MethodDelete, "/cart/items/"+logo.Item.ID, "")
	require.Equal(t, http.StatusOK, resp.Code)
	snapshot := decodeData[cartsvc.Snapshot](t, resp)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "SEO Audit", snapshot.Items[0].Title)

	resp = do(t, h, http.MethodDelete, "/cart", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 0, decodeData[cartsvc.Snapshot](t, resp).ItemCount)
}

func TestContains(t *testing.T) {
	h, _ := newTestRouter(t)
	do(t, h, http.MethodPost, "/cart/items", `{"title":"Logo Design","category":"Branding","basePrice":500}`)

	resp := do(t, h, http.MethodGet, "/cart/contains?title=Logo+Design&category=Branding", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decodeData[containsResponse](t, resp).InCart)

	resp = do(t, h, http.MethodGet, "/cart/contains?title=Logo+Design&category=Marketing", "")
	assert.False(t, decodeData[containsResponse](t, resp).InCart)

	resp = do(t, h, http.MethodGet, "/cart/contains?category=Branding", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMissingVisitorIsRejected(t *testing.T) {
	registry, err := cartsvc.NewRegistry(cartsvc.RegistryParams{Backend: cartsvc.NewMemorySlot()})
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	Fetch(registry, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestEventsStreamSnapshots(t *testing.T) {
	h, registry := newTestRouter(t)
	server := httptest.NewServer(h)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/cart/events", nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	name, data := readEvent(t, reader)
	assert.Equal(t, cartsvc.EventCartUpdated, name)
	assert.Equal(t, 0, decodeSnapshot(t, data).ItemCount)

	store, err := registry.Get(ctx, testVisitor)
	require.NoError(t, err)
	_, err = store.AddItem(ctx, cartsvc.ServiceDescriptor{Title: "Logo Design", Category: "Branding", BasePrice: 500}, 2)
	require.NoError(t, err)

	name, data = readEvent(t, reader)
	assert.Equal(t, cartsvc.EventCartUpdated, name)
	snapshot := decodeSnapshot(t, data)
	assert.Equal(t, 2, snapshot.ItemCount)
	assert.Equal(t, 1000.0, snapshot.Subtotal)
}

func readEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if name != "" {
				return name, data
			}
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func decodeSnapshot(t *testing.T, data string) cartsvc.Snapshot {
	t.Helper()
	var snapshot cartsvc.Snapshot
	require.NoError(t, json.Unmarshal([]byte(data), &snapshot))
	return snapshot
}
