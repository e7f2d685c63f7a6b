package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"algoswarm/internal/chain"
	"algoswarm/internal/config"
	"algoswarm/internal/database"
	"algoswarm/internal/handlers"
	"algoswarm/internal/logger"
	"algoswarm/internal/middleware"
	"algoswarm/internal/pricing"
	"algoswarm/internal/services"
	"algoswarm/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom binding validators
	validator.Register()

	// Blockchain node client
	gateway := chain.NewClient(appConfig.NodeURL, appConfig.NodeToken, nil, appConfig.ConfirmPoll)

	// Initialize services
	db := dbManager.DB()
	registryService := services.NewRegistryService(db)
	if err := registryService.Seed(); err != nil {
		return fmt.Errorf("failed to seed protocol configs: %w", err)
	}
	ledgerService := services.NewLedgerService(db)
	validatorService := services.NewValidatorService(registryService, gateway)
	builderService := services.NewBuilderService(registryService, gateway)
	lifecycleService := services.NewLifecycleService(registryService, validatorService, ledgerService, gateway, appConfig.DepositWait)
	recoveryService := services.NewRecoveryService(ledgerService, validatorService, builderService, nil)

	// Price cache with its single background refresh task
	priceCache := pricing.NewCache(
		[]pricing.Provider{
			pricing.NewCoinGeckoProvider(http.DefaultClient),
			pricing.NewHTXProvider(http.DefaultClient),
			pricing.NewSimulatedDEXProvider(int64(os.Getpid()), map[string]decimal.Decimal{
				"ALGO": decimal.NewFromFloat(0.18),
				"USDC": decimal.NewFromFloat(1.0),
			}),
		},
		[]string{"ALGO", "BTC", "ETH", "USDC"},
		appConfig.PriceTTL,
		nil,
		services.NewPriceSnapshotStore(db),
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go priceCache.RunRefreshLoop(ctx, appConfig.PriceRefresh)

	// Initialize handlers
	defiHandler := handlers.NewDefiHandler(validatorService, builderService, lifecycleService, ledgerService)
	recoveryHandler := handlers.NewRecoveryHandler(recoveryService)
	priceHandler := handlers.NewPriceHandler(priceCache)
	protocolHandler := handlers.NewProtocolHandler(registryService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Protocol transaction lifecycle
	defi := router.Group("/defi")
	defi.POST("/transaction/create-deposit", defiHandler.CreateDeposit)
	defi.POST("/transaction/create-withdraw", defiHandler.CreateWithdraw)
	defi.POST("/transaction/submit", defiHandler.Submit)
	defi.POST("/transaction/confirm", defiHandler.Confirm)
	defi.POST("/transaction/complete", defiHandler.Complete)
	defi.GET("/transactions", defiHandler.ListTransactions)

	// Fund recovery
	recovery := router.Group("/recovery")
	recovery.GET("/investments", recoveryHandler.ListInvestments)
	recovery.GET("/status", recoveryHandler.Status)
	recovery.POST("/withdraw", recoveryHandler.Withdraw)
	recovery.POST("/emergency", recoveryHandler.Emergency)
	recovery.POST("/complete", recoveryHandler.Complete)

	// Dashboard prices
	prices := router.Group("/prices")
	prices.GET("", priceHandler.List)
	prices.GET("/:asset", priceHandler.Get)

	// Protocol configuration
	protocols := router.Group("/protocols")
	protocols.GET("", protocolHandler.List)
	protocols.GET("/:name", protocolHandler.Get)
	router.PUT("/admin/protocols/:name", protocolHandler.Update)

	log.Infof("Starting AlgoSwarm backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
