package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Product is one item in the catalog.
type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Pagination is the envelope metadata that accompanies every listing page.
// NextPage is null on the last page.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	NextPage   *int `json:"nextPage"`
}

type productsPage struct {
	Items      []Product  `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// PageListener is called after each page of a listing has been read.
type PageListener func(page int, itemCount int)

// ListProductsOptions controls pagination walking in ListProducts.
type ListProductsOptions struct {
	// PageSize is the requested page size; zero leaves it to the server.
	PageSize int

	// MaxPages caps how many pages will be fetched; zero means no cap.
	MaxPages int

	// PageListener, if set, observes each page as it arrives.
	PageListener PageListener
}

// ProductList is the aggregated result of walking a paginated listing.
type ProductList struct {
	Items      []Product
	PagesRead  int
	TotalItems int
}

// ListProducts reads the product listing, following the envelope's nextPage
// field until it is null (or the MaxPages cap is reached), and returns the
// concatenated items.
func (c *Client) ListProducts(ctx context.Context, opts ListProductsOptions) (*ProductList, error) {
	result := &ProductList{}
	page := 1
	for {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		if opts.PageSize > 0 {
			query.Set("pageSize", strconv.Itoa(opts.PageSize))
		}
		var envelope productsPage
		if err := c.do(ctx, requestSpec{
			method: http.MethodGet,
			path:   "/api/products",
			query:  query,
		}, &envelope); err != nil {
			return nil, err
		}
		if envelope.Pagination.Page != page {
			return nil, fmt.Errorf("requested page %d but envelope reported page %d", page, envelope.Pagination.Page)
		}

		result.Items = append(result.Items, envelope.Items...)
		result.PagesRead++
		result.TotalItems = envelope.Pagination.TotalItems
		if opts.PageListener != nil {
			opts.PageListener(envelope.Pagination.Page, len(envelope.Items))
		}

		if envelope.Pagination.NextPage == nil {
			return result, nil
		}
		if *envelope.Pagination.NextPage <= page {
			return nil, fmt.Errorf("envelope's nextPage (%d) does not advance past page %d", *envelope.Pagination.NextPage, page)
		}
		if opts.MaxPages > 0 && result.PagesRead >= opts.MaxPages {
			return result, nil
		}
		page = *envelope.Pagination.NextPage
	}
}
