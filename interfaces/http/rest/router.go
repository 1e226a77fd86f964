// Package rest serves the mock pharmacy admin API the sync layer talks
// to during local development and integration tests.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"rxsync/interfaces/http/rest/handlers"
	"rxsync/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	logger *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(logger *zap.Logger) *Router {
	return &Router{logger: logger}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestLogger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", handlers.Health)
	router.Head("/health", handlers.Health)

	router.Route("/api", func(r chi.Router) {
		productHandler := handlers.NewProductHandler(rt.logger)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Get("/{productID}", productHandler.GetProduct)
		})

		saleHandler := handlers.NewSaleHandler(rt.logger)
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", saleHandler.ListSales)
			r.Post("/", saleHandler.CreateSale)
		})
	})

	return router
}
