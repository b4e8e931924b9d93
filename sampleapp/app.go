// Package sampleapp is a small self-contained web API used as the target of
// the contract test suite and the end-to-end examples. It keeps all state in
// memory and implements registration, login, user CRUD, a paginated product
// catalog, file uploads, and per-caller rate limiting.
package sampleapp

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/qualitykit/api-contract-tests/framework"
)

const catalogSize = 95

// App owns the HTTP handlers and all in-memory state.
type App struct {
	config     Config
	users      *userStore
	catalog    []Product
	uploads    *uploadStore
	promoCodes *PromoCodeValidator
	limiter    *rateLimiter
	logger     framework.Logger
}

// New creates an App from the given configuration. Promo code files named in
// the configuration are loaded here; a missing or unreadable file is a
// startup error.
func New(config Config, logger framework.Logger) (*App, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	promoCodes, err := NewPromoCodeValidator(config.PromoCodeFiles)
	if err != nil {
		return nil, err
	}
	return &App{
		config:     config,
		users:      newUserStore(),
		catalog:    seedCatalog(catalogSize),
		uploads:    newUploadStore(),
		promoCodes: promoCodes,
		limiter:    newRateLimiter(config.RateLimitPerMinute, config.RateLimitBurst),
		logger:     logger,
	}, nil
}

// Handler returns the app's HTTP routes. The health endpoint sits outside the
// rate limiter so that monitoring never gets throttled.
func (a *App) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(a.logRequests)
	router.Use(a.recoverPanics)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	router.Get("/api/health", a.getHealth)

	router.Group(func(limited chi.Router) {
		limited.Use(a.rateLimit)

		limited.Post("/api/users/register", a.postRegister)
		limited.Post("/api/users/login", a.postLogin)
		limited.Get("/api/products", a.getProducts)

		limited.Group(func(authed chi.Router) {
			authed.Use(a.requireAuth)
			authed.Get("/api/users/{id}", a.getUser)
			authed.Patch("/api/users/{id}", a.patchUser)
			authed.Delete("/api/users/{id}", a.deleteUser)
			authed.Post("/api/uploads", a.postUpload)
		})
	})

	return router
}

func (a *App) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.logger.Printf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// recoverPanics converts a panicking handler into the standard 500 envelope
// instead of letting net/http drop the connection.
func (a *App) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				a.logger.Printf("panic in %s %s: %+v", r.Method, r.URL.Path, recovered)
				writeError(w, http.StatusInternalServerError, codeInternalError,
					fmt.Sprintf("unexpected error handling %s", r.URL.Path))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
