package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kbtriage/backend/internal/app"
	"github.com/kbtriage/backend/internal/http/handlers"
	"github.com/kbtriage/backend/internal/http/middleware"

	_ "github.com/kbtriage/backend/docs"
)

func Router(a *app.App) *gin.Engine {
	cfg := a.Config
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(a.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "" || cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Responder:      a.Responder,
		Tickets:        a.Tickets,
		Publisher:      a.Publisher,
		Connectivity:   a.Connectivity,
		Validator:      validator.New(),
		Logger:         a.Logger,
		RequestTimeout: cfg.RequestTimeout,
	}
	if a.Store != nil {
		h.Audit = a.Store
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/welcome", h.Welcome)
		api.POST("/chat", h.Chat)
		api.POST("/tickets", h.CreateTicket)
		api.POST("/knowledge/publish", h.Publish)
		api.GET("/knowledge/connectivity", h.ConnectivityCheck)
		api.GET("/publishes", h.PublishesList)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
