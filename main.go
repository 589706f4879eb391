package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/DamianoLaRosa/Participium/config"
	"github.com/DamianoLaRosa/Participium/database"
	"github.com/DamianoLaRosa/Participium/handlers"
	"github.com/DamianoLaRosa/Participium/middleware"
	"github.com/DamianoLaRosa/Participium/models"
	"github.com/DamianoLaRosa/Participium/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set log level
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Create and start service
	svc := service.New(cfg, db)
	if err := svc.Start(context.Background()); err != nil {
		log.Fatal("Failed to start service:", err)
	}

	// Setup HTTP server
	router := setupRouter(svc, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	svc.Stop()

	log.Println("Server exited")
}

func setupRouter(svc *service.Service, cfg *config.Config) *gin.Engine {
	router := gin.Default()

	// Add gzip compression middleware
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Add CORS middleware
	router.Use(middleware.CORSMiddleware())

	h := handlers.NewHandlers(svc)
	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	staff := middleware.RequireRoles(
		models.RoleRelations, models.RoleTechnical, models.RoleExternal, models.RoleAdmin)

	// API routes
	api := router.Group("/api", auth)
	{
		// WebSocket endpoint for realtime delivery
		api.GET("/ws", h.HandleWebSocket)
		api.GET("/ws/health", h.WebSocketHealth)

		// Chat threads
		api.GET("/chats", h.GetChats)
		api.GET("/chats/:reportId", h.GetChat)
		api.GET("/reports/:reportId/messages", h.GetMessages)
		api.POST("/reports/:reportId/messages", h.SendMessage)

		// Citizen notifications
		api.GET("/notifications", h.GetNotifications)
		api.GET("/notifications/unread-count", h.GetUnreadCount)
		api.PUT("/notifications/mark-all-seen", h.MarkAllNotificationsSeen)
		api.PUT("/notifications/:notificationId/seen", h.MarkNotificationSeen)
		api.POST("/reports/:reportId/notifications", staff, h.CreateNotification)

		// Report lifecycle
		api.GET("/reports", staff, h.GetReports)
		api.GET("/reports/approved", h.GetApprovedReports)
		api.GET("/reports/assigned", staff, h.GetAssignedReports)
		api.GET("/reports/:reportId", h.GetReport)
		api.PUT("/reports/:reportId/status", staff, h.UpdateStatus)
		api.PUT("/reports/:reportId/operator", staff, h.AssignOperator)
		api.PUT("/reports/:reportId/external", staff, h.AssignExternal)

		// Assignment support
		api.GET("/officers/technical", staff, h.GetTechnicalOfficers)
	}

	// Root health check
	router.GET("/health", h.HealthCheck)

	return router
}
