// Package server wires handlers, guards and ambient middleware into a gin
// engine.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/ilker/tracker-server/internal/apidocs"
	"github.com/ilker/tracker-server/internal/auth"
	"github.com/ilker/tracker-server/internal/config"
	"github.com/ilker/tracker-server/internal/handlers"
	"github.com/ilker/tracker-server/internal/metrics"
	"github.com/ilker/tracker-server/internal/middleware"
	"github.com/ilker/tracker-server/internal/repository"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Deps struct {
	DB            *gorm.DB
	Store         *repository.EventStore
	Authenticator *auth.Authenticator
	Docs          *apidocs.Docs
	Metrics       config.MetricsConfig
	Logger        zerolog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	authHandler := handlers.NewAuthHandler(d.Authenticator, d.Logger)
	eventHandler := handlers.NewEventHandler(d.Store, d.Logger)
	deviceHandler := handlers.NewDeviceHandler(d.DB, d.Store, d.Logger)
	userHandler := handlers.NewUserHandler(d.DB, d.Logger)
	statsHandler := handlers.NewStatsHandler(d.Store, d.Logger)

	requireToken := middleware.RequireToken(d.Authenticator.Tokens())
	adminOnly := middleware.AdminOnly(d.Authenticator)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.CORS())
	if d.Metrics.Enabled {
		r.Use(metrics.Middleware())
		r.GET(d.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		handlers.Success(c, gin.H{"status": "ok"})
	})

	if d.Docs != nil {
		d.Docs.Register(r)
	}

	api := r.Group("/api")
	{
		api.POST("/login", authHandler.Login)
		api.GET("/is-admin", requireToken, authHandler.IsAdmin)

		// Reads are public
		api.GET("/events", eventHandler.List)
		api.GET("/events/:id", eventHandler.Get)
		api.GET("/devices", deviceHandler.List)
		api.GET("/devices/:id", deviceHandler.Get)
		api.GET("/devices/:id/events", deviceHandler.Events)
		api.GET("/devices/:id/events/latest", deviceHandler.LatestEvent)
		api.GET("/users", userHandler.List)
		api.GET("/users/:id", userHandler.Get)

		// Writes are admin only
		admin := api.Group("")
		admin.Use(requireToken, adminOnly)
		{
			admin.POST("/events", eventHandler.Create)
			admin.PATCH("/events/:id", eventHandler.Update)
			admin.DELETE("/events/:id", eventHandler.Delete)

			admin.POST("/devices", deviceHandler.Create)
			admin.PATCH("/devices/:id", deviceHandler.Update)
			admin.DELETE("/devices/:id", deviceHandler.Delete)

			admin.POST("/users", userHandler.Create)
			admin.PATCH("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)

			admin.GET("/stats/events", statsHandler.Events)
		}
	}

	return r
}
