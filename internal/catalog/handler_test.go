package catalog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/cafeorder/api/internal/domain"
)

type fakeStore struct {
	products []domain.Product
}

func (f *fakeStore) List(_ context.Context) ([]domain.Product, error) {
	return f.products, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*domain.Product, error) {
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, nil
}

func TestHandleList(t *testing.T) {
	store := &fakeStore{products: []domain.Product{
		{ID: "p1", Name: "Espresso", Price: decimal.RequireFromString("3.50"), Category: "coffee"},
	}}
	handler := NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()

	handler.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var products []domain.Product
	if err := json.NewDecoder(rec.Body).Decode(&products); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Espresso" {
		t.Errorf("unexpected products: %+v", products)
	}
}

func TestHandleGet(t *testing.T) {
	store := &fakeStore{products: []domain.Product{
		{ID: "p1", Name: "Espresso", Price: decimal.RequireFromString("3.50"), Category: "coffee"},
	}}
	handler := NewHandler(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products/p1", nil)
		req.SetPathValue("id", "p1")
		rec := httptest.NewRecorder()

		handler.HandleGet(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products/ghost", nil)
		req.SetPathValue("id", "ghost")
		rec := httptest.NewRecorder()

		handler.HandleGet(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}
