package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lauraedgell33/autoscout-sub002/internal/http/admin"
	"github.com/lauraedgell33/autoscout-sub002/internal/http/auth"
	"github.com/lauraedgell33/autoscout-sub002/internal/http/dispute"
	"github.com/lauraedgell33/autoscout-sub002/internal/http/export"
	"github.com/lauraedgell33/autoscout-sub002/internal/http/order"
	"github.com/lauraedgell33/autoscout-sub002/internal/http/payment"
)

func New(
	jwtSecret string,
	ordersV1 *order.Handler,
	paymentsV1 *payment.Handler,
	disputesV1 *dispute.Handler,
	adminV1 *admin.Handler,
	exportV1 *export.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(jwtSecret))

		r.Route("/orders", func(r chi.Router) {
			ordersV1.Routes(r)
			paymentsV1.Routes(r)
			disputesV1.OrderRoutes(r)
		})

		r.Route("/disputes", disputesV1.Routes)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			adminV1.Routes(r)
			r.Route("/export", exportV1.Routes)
		})
	})

	return router
}
