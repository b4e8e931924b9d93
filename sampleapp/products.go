package sampleapp

import (
	"fmt"
	"net/http"
	"strconv"
)

const defaultPageSize = 20
const maxPageSize = 100

// Product is one item in the catalog.
type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	NextPage   *int `json:"nextPage"`
}

type productListing struct {
	Items      []Product  `json:"items"`
	Pagination pagination `json:"pagination"`
}

// seedCatalog builds the fixed demo catalog. Deterministic contents keep the
// pagination behavior predictable for tests and examples.
func seedCatalog(size int) []Product {
	names := []string{"Waffle", "Chicken Waffle", "Burger", "Chickenburger", "Fries", "Onion Rings", "Lemonade", "Iced Tea"}
	catalog := make([]Product, 0, size)
	for i := 0; i < size; i++ {
		catalog = append(catalog, Product{
			ID:    fmt.Sprintf("prod-%04d", i+1),
			Name:  fmt.Sprintf("%s #%d", names[i%len(names)], i/len(names)+1),
			Price: float64(199+i*50) / 100,
		})
	}
	return catalog
}

func (a *App) getProducts(w http.ResponseWriter, r *http.Request) {
	page, err := positiveQueryParam(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid input",
			errorDetail{Field: "page", Message: "must be a positive integer"})
		return
	}
	pageSize, err := positiveQueryParam(r, "pageSize", defaultPageSize)
	if err != nil || pageSize > maxPageSize {
		writeError(w, http.StatusBadRequest, codeValidationError, "invalid input",
			errorDetail{Field: "pageSize", Message: fmt.Sprintf("must be a positive integer no greater than %d", maxPageSize)})
		return
	}

	totalItems := len(a.catalog)
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	listing := productListing{
		Items: []Product{},
		Pagination: pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: totalItems,
			TotalPages: totalPages,
		},
	}
	first := (page - 1) * pageSize
	if first < totalItems {
		last := first + pageSize
		if last > totalItems {
			last = totalItems
		}
		listing.Items = a.catalog[first:last]
	}
	if page < totalPages {
		next := page + 1
		listing.Pagination.NextPage = &next
	}

	writeJSON(w, http.StatusOK, listing)
}

func positiveQueryParam(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return value, nil
}
