package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/voicereachhq/dialer-services-backend/internal/database"
	"github.com/voicereachhq/dialer-services-backend/internal/database/repository"
	"github.com/voicereachhq/dialer-services-backend/internal/handlers"
	"github.com/voicereachhq/dialer-services-backend/internal/router"
	"github.com/voicereachhq/dialer-services-backend/internal/services"
	"github.com/voicereachhq/dialer-services-backend/internal/services/excel"
	"github.com/voicereachhq/dialer-services-backend/internal/services/telephony"
	"github.com/voicereachhq/dialer-services-backend/internal/utils"

	// Import Swagger docs
	_ "github.com/voicereachhq/dialer-services-backend/docs"
)

// @title Dialer Services API
// @version 1.0
// @description Outbound call campaign dialer with compliance enforcement

// @contact.name API Support

// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter `Bearer ` followed by your JWT token (e.g. "Bearer <token>")

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Configure logging
	configureLogging()

	// Initialize Sentry
	utils.InitSentry()

	// Initialize database connection
	db, err := database.InitDB()
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis is optional: without it DNC lookups hit Postgres directly
	rdb := database.InitRedis()

	// Repositories
	campaignRepo := repository.NewCampaignRepository(db)
	callLogRepo := repository.NewCallLogRepository(db)
	callRecordRepo := repository.NewCallRecordRepository(db)
	contactRepo := repository.NewContactRepository(db)
	dncRepo := repository.NewDNCRepository(db, rdb)
	complianceRepo := repository.NewComplianceRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	providerSettingsRepo := repository.NewProviderSettingsRepository(db)

	// Core services
	providerManager := telephony.NewManager(providerSettingsRepo)
	complianceService := services.NewComplianceService(complianceRepo, callRecordRepo)
	dialerService := services.NewDialerService(campaignRepo, callLogRepo, callRecordRepo, complianceService, providerManager)
	supervisor := services.NewDialerSupervisor(dialerService, campaignRepo)
	callbackService := services.NewCallbackService(campaignRepo, callLogRepo, callRecordRepo, dncRepo, providerManager, supervisor)
	expanderService := services.NewExpanderService(campaignRepo, contactRepo, callLogRepo, dncRepo)

	// Expansion jobs go through RabbitMQ; without a broker they run on a
	// local goroutine instead
	var publisher services.ExpansionPublisher
	rabbitMQService, err := services.NewRabbitMQService()
	if err != nil {
		logrus.Warnf("Failed to initialize RabbitMQ, expansions will run in-process: %v", err)
		publisher = services.NewInProcessPublisher(expanderService)
	} else {
		defer rabbitMQService.Close()
		if err := rabbitMQService.StartExpansionConsumer(expanderService); err != nil {
			logrus.Fatalf("Failed to start expansion consumer: %v", err)
		}
		publisher = rabbitMQService
	}

	campaignService := services.NewCampaignService(campaignRepo, callLogRepo, agentRepo, supervisor, publisher)
	exportService := excel.NewExportService(campaignRepo, callLogRepo, complianceRepo, getEnv("EXPORTS_DIR", "./exports"))

	// Recover workers for campaigns that were running before restart
	if err := supervisor.RecoverRunning(); err != nil {
		logrus.Errorf("Worker recovery failed: %v", err)
	}
	defer supervisor.StopAll()

	r := router.SetupRouter(router.Handlers{
		Campaign:         handlers.NewCampaignHandler(campaignService, exportService),
		Compliance:       handlers.NewComplianceHandler(complianceRepo, exportService),
		DNC:              handlers.NewDNCHandler(dncRepo),
		ProviderSettings: handlers.NewProviderSettingsHandler(providerSettingsRepo, providerManager),
		Webhook:          handlers.NewWebhookHandler(callbackService),
	})

	// Configure HTTP server
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Server starting on port %s", port)
		logrus.Infof("API Health Check: http://localhost:%s/api/v1/health", port)
		logrus.Infof("Swagger UI: http://localhost:%s/swagger/index.html", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}

func configureLogging() {
	logLevel := getEnv("LOG_LEVEL", "info")
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
