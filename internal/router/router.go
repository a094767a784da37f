package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"settlement-service/internal/handler"
)

// requestID tags every request so gateway callbacks and admin actions can be
// correlated across log lines. Inbound ids from the proxy are kept.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func SetupRoutes(
	r chi.Router,
	transactions *handler.TransactionHandler,
	withdrawals *handler.WithdrawalHandler,
	webhooks *handler.WebhookHandler,
) chi.Router {
	r.Use(requestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// ============================================================
	// Public Endpoints (Webhooks & Health)
	// ============================================================
	r.Group(func(pub chi.Router) {
		pub.Get("/settlement/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})

		// Gateway payment notifications; payload authenticity is enforced by
		// signature verification, not transport auth.
		pub.Post("/payments/notification", webhooks.HandleNotification)
	})

	// ============================================================
	// Service Endpoints (purchase flow + admin, behind the gateway proxy)
	// ============================================================
	r.Route("/settlement", func(pr chi.Router) {
		pr.Post("/transactions", transactions.OpenTransaction)
		pr.Get("/transactions", transactions.ListTransactions)
		pr.Get("/transactions/{orderID}", transactions.GetTransactionStatus)
		pr.Get("/transactions/{orderID}/commissions", transactions.ListCommissions)
		pr.Get("/balance/{ownerID}", transactions.GetBalance)

		pr.Post("/withdrawals", withdrawals.RequestWithdrawal)
		pr.Get("/withdrawals", withdrawals.ListWithdrawals)
		pr.Get("/withdrawals/{withdrawalID}", withdrawals.GetWithdrawal)
		pr.Post("/withdrawals/{withdrawalID}/approve", withdrawals.ApproveWithdrawal)
		pr.Post("/withdrawals/{withdrawalID}/reject", withdrawals.RejectWithdrawal)
		pr.Post("/withdrawals/{withdrawalID}/process", withdrawals.ProcessWithdrawal)
		pr.Post("/withdrawals/{withdrawalID}/complete", withdrawals.CompleteWithdrawal)
	})

	return r
}
