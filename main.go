// File: tigermeter/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tigermeter/config"
	"tigermeter/cron"
	"tigermeter/database"
	claimRepoPkg "tigermeter/database/repository/claim"
	deviceRepoPkg "tigermeter/database/repository/device"
	pendingRepoPkg "tigermeter/database/repository/pending"
	"tigermeter/handlers"
	"tigermeter/middleware"
	"tigermeter/routes"
	"tigermeter/services/claim"
	"tigermeter/services/device"
	"tigermeter/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitAuthCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	deviceRepo := deviceRepoPkg.NewMongoDeviceRepo()
	claimRepo := claimRepoPkg.NewMongoClaimRepo()
	pendingRepo := pendingRepoPkg.NewMongoPendingDeviceRepo()

	// services.
	deviceService := &device.DefaultDeviceService{
		Repo:                  deviceRepo,
		Claims:                claimRepo,
		Pending:               pendingRepo,
		AuthCache:             utils.GetAuthCacheClient(),
		SecretPrefix:          config.AppConfig.DeviceSecretPrefix,
		SecretLength:          config.AppConfig.DeviceSecretLength,
		SecretTTL:             time.Duration(config.AppConfig.DeviceSecretTTLDays) * 24 * time.Hour,
		LatestFirmwareVersion: config.AppConfig.LatestFirmwareVersion,
		FirmwareDownloadURL:   config.AppConfig.FirmwareDownloadURL,
	}

	claimService := &claim.DefaultClaimService{
		Devices:       deviceRepo,
		Claims:        claimRepo,
		Pending:       pendingRepo,
		Secrets:       deviceService,
		HmacKey:       config.AppConfig.HmacKey,
		HmacTolerance: time.Duration(config.AppConfig.HmacToleranceSeconds) * time.Second,
		ClaimCodeTTL:  time.Duration(config.AppConfig.ClaimCodeTTLSeconds) * time.Second,
	}

	claimHandler := handlers.NewClaimHandler(claimService)
	deviceHandler := handlers.NewDeviceHandler(deviceService)
	portalHandler := handlers.NewPortalHandler(deviceService)
	adminHandler := handlers.NewAdminHandler(deviceService, claimService)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		// Claim endpoints.
		IssueClaimHandler:  claimHandler.IssueClaimHandler,
		AttachClaimHandler: claimHandler.AttachClaimHandler,
		PollClaimHandler:   claimHandler.PollClaimHandler,

		// Device endpoints.
		HeartbeatHandler:       deviceHandler.HeartbeatHandler,
		GetDisplayHashHandler:  deviceHandler.GetDisplayHashHandler,
		GetDisplayFullHandler:  deviceHandler.GetDisplayFullHandler,
		RefreshSecretHandler:   deviceHandler.RefreshSecretHandler,
		ProvisionDeviceHandler: deviceHandler.ProvisionDeviceHandler,

		// Portal endpoints.
		ListOwnDevicesHandler: portalHandler.ListOwnDevicesHandler,
		GetOwnDeviceHandler:   portalHandler.GetOwnDeviceHandler,
		OwnerRevokeHandler:    portalHandler.OwnerRevokeHandler,
		SetDisplayHandler:     portalHandler.SetDisplayHandler,

		// Admin endpoints.
		AdminHandler: adminHandler,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle, deviceService)

	// Opportunistic cleanup of expired claims and processed pending devices.
	cron.InitSweepWorker(claimRepo, pendingRepo)

	// Monitor external service health for the /health endpoint.
	utils.StartHealthMonitor(utils.GetAuthCacheClient(), database.MongoClient)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
