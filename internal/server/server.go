package server

import (
	"log"
	"net/http"

	"settlement-service/internal/config"
	"settlement-service/internal/gateway"
	"settlement-service/internal/handler"
	"settlement-service/internal/repository"
	"settlement-service/internal/router"
	"settlement-service/internal/settings"
	"settlement-service/internal/usecase/commission"
	"settlement-service/internal/usecase/ledger"
	"settlement-service/internal/usecase/withdrawal"
	"settlement-service/pkg/id"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func NewServer(cfg config.AppConfig) *http.Server {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("failed to connect DB: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	store := repository.NewStore(db)
	ids := id.NewGenerator()
	settingsProvider := settings.NewCached(settings.NewPGProvider(db), rdb)

	commissionEngine := commission.NewEngine(store, logger)
	txLedger := ledger.New(store, commissionEngine, settingsProvider, ids, logger)
	withdrawalProcessor := withdrawal.NewProcessor(store, settingsProvider, ids, logger)

	chargeClient := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayServerKey)

	transactionHandler := handler.NewTransactionHandler(txLedger, commissionEngine, store, chargeClient, logger)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalProcessor, logger)
	webhookHandler := handler.NewWebhookHandler(txLedger, cfg.GatewayServerKey, logger)

	r := chi.NewRouter()
	router.SetupRoutes(r, transactionHandler, withdrawalHandler, webhookHandler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
}
