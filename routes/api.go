package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/conky-dev/numba-blasta-sub001/environments"
	"github.com/conky-dev/numba-blasta-sub001/handlers"
	"github.com/conky-dev/numba-blasta-sub001/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	messageHandler *handlers.MessageHandler,
	campaignHandler *handlers.CampaignHandler,
	creditHandler *handlers.CreditHandler,
	senderHandler *handlers.SenderHandler,
	deliveryHandler *handlers.DeliveryHandler,
	schedulerHandler *handlers.SchedulerHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 base group
	v1 := e.Group("/api/v1")

	apiAuth := middlewares.APIKeyAuth(cfg.Auth.APIKey)

	messages := v1.Group("/messages", apiAuth)
	messages.GET("", messageHandler.GetAllMessages)
	messages.POST("", messageHandler.SendMessage)
	messages.GET("/stats", messageHandler.GetStats)
	messages.GET("/:id", messageHandler.GetMessage)

	campaigns := v1.Group("/campaigns", apiAuth)
	campaigns.GET("", campaignHandler.ListCampaigns)
	campaigns.POST("", campaignHandler.CreateCampaign)
	campaigns.GET("/:id", campaignHandler.GetCampaign)
	campaigns.DELETE("/:id", campaignHandler.DeleteCampaign)
	campaigns.POST("/:id/schedule", campaignHandler.ScheduleCampaign)
	campaigns.POST("/:id/start", campaignHandler.StartCampaign)
	campaigns.POST("/:id/pause", campaignHandler.PauseCampaign)
	campaigns.POST("/:id/resume", campaignHandler.ResumeCampaign)
	campaigns.POST("/:id/cancel", campaignHandler.CancelCampaign)

	credits := v1.Group("/credits", apiAuth)
	credits.GET("/balance", creditHandler.GetBalance)
	credits.GET("/transactions", creditHandler.ListTransactions)
	credits.POST("/funds", creditHandler.AddFunds)

	senders := v1.Group("/senders", apiAuth)
	senders.GET("", senderHandler.ListSenders)
	senders.GET("/:number/usage", senderHandler.GetSenderUsage)

	// Gateway callbacks authenticate with the gateway key, not the API key.
	webhooks := v1.Group("/webhooks", middlewares.HeaderKeyAuth("x-gateway-auth-key", cfg.Gateway.AuthKey))
	webhooks.POST("/delivery", deliveryHandler.DeliveryCallback)

	// Scheduler routes with their own API key
	schedulerGroup := v1.Group("/scheduler", middlewares.HeaderKeyAuth("x-scheduler-auth-key", cfg.Auth.SchedulerAPIKey))
	schedulerGroup.POST("/start", schedulerHandler.StartScheduler)
	schedulerGroup.POST("/stop", schedulerHandler.StopScheduler)
	schedulerGroup.GET("/status", schedulerHandler.GetSchedulerStatus)
}
