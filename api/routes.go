package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/orderstack/orderstack/api/handlers"
	"github.com/orderstack/orderstack/api/middleware"
	"github.com/orderstack/orderstack/config"
	"github.com/orderstack/orderstack/internal/repository"
	"github.com/orderstack/orderstack/internal/tracing"
	"github.com/orderstack/orderstack/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, cfg *config.Config, s *services.Services, repos *repository.Repositories) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))
	r.Use(middleware.RequestIDMiddleware())

	// Health check endpoint (no auth)
	r.GET("/health", handlers.HealthCheck)

	// Finished archives are served as plain files
	r.Static("/downloads", cfg.StorageConfig.DownloadsDir)

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-ORDERSTACK-API-KEY",
		QueryParam:  "apiKey",
		ValidAPIKey: cfg.AppConfig.APIKey,
	})

	// API group with version
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	{
		// Sender profile endpoints
		senders := api.Group("/senders")
		{
			senders.POST("", handlers.CreateSender(repos.SenderRepository))
			senders.GET("", handlers.ListSenders(repos.SenderRepository))
			senders.GET("/:id", handlers.GetSender(repos.SenderRepository))
			senders.PUT("/:id", handlers.UpdateSender(repos.SenderRepository))
			senders.DELETE("/:id", handlers.DeleteSender(repos.SenderRepository))
		}

		// Order ingestion endpoints
		orders := api.Group("/orders")
		{
			orders.POST("/fetch", handlers.FetchOrders(s.OrderService))
			orders.GET("/progress", handlers.StreamProgress(s.ProgressRegistry))
		}
	}
}
