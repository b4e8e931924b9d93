package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paginatedCatalogHandler serves a fixed catalog of totalItems products,
// honoring the page and pageSize query parameters the way the real API does.
func paginatedCatalogHandler(t *testing.T, totalItems, defaultPageSize int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 0 {
			page = 1
		}
		pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		if pageSize == 0 {
			pageSize = defaultPageSize
		}
		totalPages := (totalItems + pageSize - 1) / pageSize
		if totalPages == 0 {
			totalPages = 1
		}

		first := (page - 1) * pageSize
		items := "["
		for i := first; i < first+pageSize && i < totalItems; i++ {
			if i > first {
				items += ","
			}
			items += fmt.Sprintf(`{"id":"p%d","name":"product %d","price":%d.50}`, i, i, i)
		}
		items += "]"

		nextPage := "null"
		if page < totalPages {
			nextPage = strconv.Itoa(page + 1)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"items":%s,"pagination":{"page":%d,"pageSize":%d,"totalItems":%d,"totalPages":%d,"nextPage":%s}}`,
			items, page, pageSize, totalItems, totalPages, nextPage)
	})
}

func TestListProductsFollowsNextPageUntilNull(t *testing.T) {
	server := httptest.NewServer(paginatedCatalogHandler(t, 25, 10))
	defer server.Close()
	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	var pages []int
	result, err := client.ListProducts(context.Background(), ListProductsOptions{
		PageSize: 10,
		PageListener: func(page, itemCount int) {
			pages = append(pages, page)
		},
	})
	require.NoError(t, err)

	assert.Len(t, result.Items, 25)
	assert.Equal(t, 3, result.PagesRead)
	assert.Equal(t, 25, result.TotalItems)
	assert.Equal(t, []int{1, 2, 3}, pages, "pages should be reported in order")
	assert.Equal(t, "p0", result.Items[0].ID)
	assert.Equal(t, "p24", result.Items[24].ID)
}

func TestListProductsRespectsMaxPages(t *testing.T) {
	server := httptest.NewServer(paginatedCatalogHandler(t, 100, 10))
	defer server.Close()
	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	result, err := client.ListProducts(context.Background(), ListProductsOptions{PageSize: 10, MaxPages: 2})
	require.NoError(t, err)
	assert.Len(t, result.Items, 20)
	assert.Equal(t, 2, result.PagesRead)
	assert.Equal(t, 100, result.TotalItems, "totalItems reflects the whole catalog, not just pages read")
}

func TestListProductsWithEmptyResultSet(t *testing.T) {
	server := httptest.NewServer(paginatedCatalogHandler(t, 0, 10))
	defer server.Close()
	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	result, err := client.ListProducts(context.Background(), ListProductsOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, 1, result.PagesRead)
}

func TestListProductsRejectsNonAdvancingNextPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// nextPage points back at the current page; a naive walker would loop forever
		fmt.Fprint(w, `{"items":[],"pagination":{"page":1,"pageSize":10,"totalItems":10,"totalPages":2,"nextPage":1}}`)
	}))
	defer server.Close()
	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.ListProducts(context.Background(), ListProductsOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nextPage")
}

func TestListProductsRejectsMismatchedPageNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[],"pagination":{"page":7,"pageSize":10,"totalItems":0,"totalPages":1,"nextPage":null}}`)
	}))
	defer server.Close()
	client, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.ListProducts(context.Background(), ListProductsOptions{})
	require.Error(t, err)
}
