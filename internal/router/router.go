package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/voicereachhq/dialer-services-backend/internal/handlers"
	"github.com/voicereachhq/dialer-services-backend/internal/middleware"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	Campaign         *handlers.CampaignHandler
	Compliance       *handlers.ComplianceHandler
	DNC              *handlers.DNCHandler
	ProviderSettings *handlers.ProviderSettingsHandler
	Webhook          *handlers.WebhookHandler
}

// SetupRouter configures the Gin router
func SetupRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Provider callbacks are public: the provider cannot authenticate
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/call-status", h.Webhook.CallStatus)
		webhooks.POST("/call-action", h.Webhook.CallAction)
	}

	// API v1 routes
	api := r.Group("/api/v1")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
				"time":   time.Now().Format(time.RFC3339),
			})
		})

		protected := api.Group("")
		protected.Use(middleware.BearerTokenAuthMiddleware())
		{
			campaigns := protected.Group("/campaigns")
			{
				campaigns.POST("", h.Campaign.CreateCampaign)
				campaigns.GET("", h.Campaign.GetCampaigns)
				campaigns.GET("/:id", h.Campaign.GetCampaign)
				campaigns.DELETE("/:id", h.Campaign.DeleteCampaign)
				campaigns.PUT("/:id/status", h.Campaign.UpdateCampaignStatus)
				campaigns.GET("/:id/logs", h.Campaign.GetCampaignLogs)
				campaigns.GET("/:id/logs/export", h.Campaign.ExportCampaignLogs)
			}

			compliance := protected.Group("/compliance")
			{
				compliance.GET("/policy", h.Compliance.GetPolicy)
				compliance.PUT("/policy", middleware.AdminOnlyMiddleware(), h.Compliance.UpdatePolicy)
				compliance.GET("/violations", h.Compliance.GetViolations)
				compliance.GET("/violations/export", h.Compliance.ExportViolations)
			}

			dnc := protected.Group("/dnc")
			{
				dnc.GET("", h.DNC.ListEntries)
				dnc.POST("", h.DNC.AddEntry)
				dnc.DELETE("/:number", h.DNC.RemoveEntry)
			}

			provider := protected.Group("/provider")
			provider.Use(middleware.AdminOnlyMiddleware())
			{
				provider.GET("/settings", h.ProviderSettings.GetSettings)
				provider.PUT("/settings", h.ProviderSettings.UpdateSettings)
			}
		}
	}

	return r
}
