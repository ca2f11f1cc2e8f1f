package offapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/domain/product"
)

func testServer(t *testing.T, pages int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/search", r.URL.Path)
		assert.Equal(t, "denmark", r.URL.Query().Get("countries_tags_en"))
		page := r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"page_count": %d, "products": [
			{"product_name": "Vare %s-1", "countries_tags": ["en:denmark"], "ecoscore_grade": "b"},
			{"product_name": "Vare %s-2", "labels_tags": ["en:organic"]}
		]}`, pages, page, page)
	}))
}

func TestAPIReader_PagesUntilPageCount(t *testing.T) {
	srv := testServer(t, 3)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.RateLimit = 0

	var names []string
	err := NewAPIReader(cfg, nil).Each(context.Background(), func(row product.RawAttributes) error {
		names = append(names, row.Get(product.ColProductName))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Vare 1-1", "Vare 1-2", "Vare 2-1", "Vare 2-2", "Vare 3-1", "Vare 3-2"}, names)
}

func TestAPIReader_MaxPages(t *testing.T) {
	srv := testServer(t, 10)
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.RateLimit = 0
	cfg.MaxPages = 2

	n := 0
	require.NoError(t, NewAPIReader(cfg, nil).Each(context.Background(), func(product.RawAttributes) error {
		n++
		return nil
	}))
	assert.Equal(t, 4, n)
}

func TestAPIReader_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.RateLimit = 0
	err := NewAPIReader(cfg, nil).Each(context.Background(), func(product.RawAttributes) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
