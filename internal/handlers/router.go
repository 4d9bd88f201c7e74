package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentwise/settlement-service/internal/domain"
	"github.com/rentwise/settlement-service/internal/domain/ports"
	"github.com/rentwise/settlement-service/internal/middleware"
	"github.com/rentwise/settlement-service/internal/services/account"
	"github.com/rentwise/settlement-service/internal/services/commission"
	"github.com/rentwise/settlement-service/internal/services/escrow"
	"github.com/rentwise/settlement-service/internal/services/ledger"
	"github.com/rentwise/settlement-service/internal/services/payout"
	"github.com/rentwise/settlement-service/internal/services/webhook"
	pkgmiddleware "github.com/rentwise/settlement-service/pkg/middleware"
	"github.com/rentwise/settlement-service/pkg/observability"
)

// Handler is the HTTP adapter entrypoint for the settlement API
type Handler struct {
	commission *commission.Service
	ledger     *ledger.Service
	escrow     *escrow.Service
	account    *account.Service
	payout     *payout.Service
	webhook    *webhook.Service
	logger     ports.Logger
}

// NewHandler constructs an HTTP handler bound to the settlement services
func NewHandler(
	commissionSvc *commission.Service,
	ledgerSvc *ledger.Service,
	escrowSvc *escrow.Service,
	accountSvc *account.Service,
	payoutSvc *payout.Service,
	webhookSvc *webhook.Service,
	logger ports.Logger,
) *Handler {
	return &Handler{
		commission: commissionSvc,
		ledger:     ledgerSvc,
		escrow:     escrowSvc,
		account:    accountSvc,
		payout:     payoutSvc,
		webhook:    webhookSvc,
		logger:     logger,
	}
}

// NewRouter registers the settlement routes and middleware stack. The webhook
// endpoint sits outside the principal-guarded API tree; its only auth is the
// gateway signature, optionally rate limited per sender when limiter is set.
func NewRouter(handler *Handler, signature *middleware.WebhookSignature, limiter *pkgmiddleware.RateLimiter, health http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(handler.recoverMiddleware)
	r.Use(handler.loggingMiddleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(observability.HTTPMetricsMiddleware(chiRoutePattern))

	if health != nil {
		r.Get("/healthz", health)
	} else {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			writeMessage(w, http.StatusOK, "ok")
		})
	}

	webhookRoute := r.With(signature.Verify)
	if limiter != nil {
		webhookRoute = webhookRoute.With(limiter.Middleware)
	}
	webhookRoute.Post("/webhooks/gateway", handler.gatewayWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(principalMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(domain.RoleLandlord))
			r.Post("/payouts/request", handler.createPayoutRequest)
			r.Get("/payouts/requests", handler.listOwnPayoutRequests)
			r.Post("/payouts/requests/{id}/cancel", handler.cancelPayoutRequest)
			r.Get("/landlords/me/balance", handler.getBalance)
			r.Get("/landlords/me/earnings", handler.getEarnings)
			r.Get("/landlords/me/payments", handler.listOwnPayments)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(domain.RoleAdmin))
			r.Get("/payouts/admin/pending", handler.listPendingPayoutRequests)
			r.Put("/payouts/admin/{id}/approve", handler.approvePayoutRequest)
			r.Put("/payouts/admin/{id}/reject", handler.rejectPayoutRequest)
			r.Put("/payouts/admin/{id}/process", handler.processPayoutRequest)
			r.Get("/commission/rate", handler.getCommissionRate)
			r.Put("/commission/rate", handler.updateCommissionRate)
			r.Get("/commission/history", handler.getCommissionHistory)
			r.Post("/payments/initiate", handler.initiatePayment)
			r.Get("/payments/{id}", handler.getPayment)
			r.Put("/payments/{id}/refund", handler.refundPayment)
			r.Put("/payments/{id}/escrow/release", handler.releaseEscrow)
			r.Put("/payments/{id}/escrow/flags", handler.setEscrowFlags)
		})
	})

	return r
}

func chiRoutePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		return routeCtx.RoutePattern()
	}
	return ""
}
