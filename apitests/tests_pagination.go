package apitests

import (
	"net/http"
	"strconv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/qualitykit/api-contract-tests/servicedef"
)

// paginatedListingHandler serves pre-built page bodies keyed by the "page"
// query parameter. Requests for pages that were not defined get a 400, which
// will show up in the test as an unexpected consumer error.
func paginatedListingHandler(pages map[int]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 0 {
			page = 1
		}
		body, ok := pages[page]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

// DoPaginationTests checks how the consumer walks the listing envelope:
// {"items": [...], "pagination": {"page", "pageSize", "totalItems",
// "totalPages", "nextPage"}}.
func DoPaginationTests(t *T) {
	t.RequireCapability(servicedef.CapabilityPagination)

	t.Run("follows nextPage until it is null", func(t *T) {
		t.mockAPI.SetHandler(paginatedListingHandler(map[int]string{
			1: paginationPageBody(`[{"id":"p1","name":"one","price":1.0},{"id":"p2","name":"two","price":2.0}]`, 1, 2, 5, 3, 2),
			2: paginationPageBody(`[{"id":"p3","name":"three","price":3.0},{"id":"p4","name":"four","price":4.0}]`, 2, 2, 5, 3, 3),
			3: paginationPageBody(`[{"id":"p5","name":"five","price":5.0}]`, 3, 2, 5, 3, -1),
		}))
		t.StartConsumer()

		result := t.RequireSuccess(t.SendCommand(servicedef.CommandParams{
			Command:      servicedef.CommandListProducts,
			ListProducts: &servicedef.ListProductsParams{PageSize: ldvalue.NewOptionalInt(2)},
		}))

		require.NotNil(t, result.Products)
		assert.Equal(t, 3, result.Products.PagesRead)
		assert.Equal(t, 5, result.Products.TotalItems)
		require.Len(t, result.Products.Items, 5)
		assert.Equal(t, "p1", result.Products.Items[0].ID)
		assert.Equal(t, "p5", result.Products.Items[4].ID)
	})

	t.Run("requests carry the page and pageSize parameters", func(t *T) {
		t.mockAPI.SetHandler(paginatedListingHandler(map[int]string{
			1: paginationPageBody(`[]`, 1, 7, 0, 1, -1),
		}))
		t.StartConsumer()

		t.RequireSuccess(t.SendCommand(servicedef.CommandParams{
			Command:      servicedef.CommandListProducts,
			ListProducts: &servicedef.ListProductsParams{PageSize: ldvalue.NewOptionalInt(7)},
		}))

		request := t.AwaitRequest()
		assert.Equal(t, "/api/products", request.Path, "incorrect request path")
		assert.Equal(t, "1", request.Query.Get("page"), "missing or incorrect page parameter")
		assert.Equal(t, "7", request.Query.Get("pageSize"), "missing or incorrect pageSize parameter")
	})

	t.Run("reports one page callback per page, in order", func(t *T) {
		t.mockAPI.SetHandler(paginatedListingHandler(map[int]string{
			1: paginationPageBody(`[{"id":"p1","name":"one","price":1.0}]`, 1, 1, 2, 2, 2),
			2: paginationPageBody(`[{"id":"p2","name":"two","price":2.0}]`, 2, 1, 2, 2, -1),
		}))
		t.StartConsumer()

		t.RequireSuccess(t.SendCommand(servicedef.CommandParams{
			Command:      servicedef.CommandListProducts,
			ListProducts: &servicedef.ListProductsParams{PageSize: ldvalue.NewOptionalInt(1)},
		}))

		first := t.RequirePageCallback()
		assert.Equal(t, 1, first.Page)
		assert.Equal(t, 1, first.ItemCount)
		second := t.RequirePageCallback()
		assert.Equal(t, 2, second.Page)
		t.ExpectNoMoreCallbacks(awaitQuietPeriod)
	})

	t.Run("empty result set is a single page with no items", func(t *T) {
		t.mockAPI.SetHandler(paginatedListingHandler(map[int]string{
			1: paginationPageBody(`[]`, 1, 20, 0, 1, -1),
		}))
		t.StartConsumer()

		result := t.RequireSuccess(t.SendCommand(servicedef.CommandParams{
			Command:      servicedef.CommandListProducts,
			ListProducts: &servicedef.ListProductsParams{},
		}))

		require.NotNil(t, result.Products)
		assert.Empty(t, result.Products.Items)
		assert.Equal(t, 1, result.Products.PagesRead)
	})

	t.Run("maxPages caps how far the consumer walks", func(t *T) {
		t.mockAPI.SetHandler(paginatedListingHandler(map[int]string{
			1: paginationPageBody(`[{"id":"p1","name":"one","price":1.0}]`, 1, 1, 10, 10, 2),
			2: paginationPageBody(`[{"id":"p2","name":"two","price":2.0}]`, 2, 1, 10, 10, 3),
		}))
		t.StartConsumer()

		result := t.RequireSuccess(t.SendCommand(servicedef.CommandParams{
			Command: servicedef.CommandListProducts,
			ListProducts: &servicedef.ListProductsParams{
				PageSize: ldvalue.NewOptionalInt(1),
				MaxPages: ldvalue.NewOptionalInt(2),
			},
		}))

		require.NotNil(t, result.Products)
		assert.Equal(t, 2, result.Products.PagesRead)
		assert.Len(t, result.Products.Items, 2)

		// Drain the two expected page requests, then confirm no third fetch
		_ = t.AwaitRequest()
		_ = t.AwaitRequest()
		t.ExpectNoMoreRequests(awaitQuietPeriod)
	})
}
