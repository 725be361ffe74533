// Package membershipledger предоставляет маршруты для основного приложения.
package membershipledger

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/membership-ledger/internal/config"
	"github.com/magabrotheeeer/membership-ledger/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/membership-ledger/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/membership-ledger/internal/http/handlers/billing/invoicecreate"
	"github.com/magabrotheeeer/membership-ledger/internal/http/handlers/billing/invoicelist"
	"github.com/magabrotheeeer/membership-ledger/internal/http/handlers/billing/paymentwebhook"
	"github.com/magabrotheeeer/membership-ledger/internal/http/handlers/catalog/itemcreate"
	"github.com/magabrotheeeer/membership-ledger/internal/http/handlers/catalog/itemlist"
	"github.com/magabrotheeeer/membership-ledger/internal/http/handlers/membership/reconcile"
	"github.com/magabrotheeeer/membership-ledger/internal/http/handlers/membership/status"
	"github.com/magabrotheeeer/membership-ledger/internal/http/middlewarectx"
	authservice "github.com/magabrotheeeer/membership-ledger/internal/services/auth"
	billingservice "github.com/magabrotheeeer/membership-ledger/internal/services/billing"
	catalogservice "github.com/magabrotheeeer/membership-ledger/internal/services/catalog"
	entitlementservice "github.com/magabrotheeeer/membership-ledger/internal/services/entitlement"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	authService *authservice.AuthService,
	catalogService *catalogservice.CatalogService,
	billingService *billingservice.BillingService,
	entitlementService *entitlementservice.EntitlementService) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/items/list", itemlist.New(logger, catalogService).ServeHTTP)
			r.Post("/invoices", invoicecreate.New(logger, billingService).ServeHTTP)
			r.Get("/invoices/list", invoicelist.New(logger, billingService).ServeHTTP)
			r.Get("/membership/status", status.New(logger, entitlementService).ServeHTTP)
			r.Post("/membership/reconcile", reconcile.New(logger, entitlementService).ServeHTTP)

			// Административные конечные точки
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireAdmin(logger))
				r.Post("/items", itemcreate.New(logger, catalogService).ServeHTTP)
			})
		})

		// Webhook endpoint (без аутентификации)
		r.Post("/payments/webhook", paymentwebhook.New(logger, billingService, cfg.WebhookSecret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
