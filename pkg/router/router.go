package router

import (
	"github.com/gin-gonic/gin"

	"lms-consulting-portal/backend/internal/api"
	"lms-consulting-portal/backend/internal/ws"
	"lms-consulting-portal/backend/pkg/config"
	"lms-consulting-portal/backend/pkg/di"
	"lms-consulting-portal/backend/pkg/errors"
	"lms-consulting-portal/backend/pkg/logger"
	"lms-consulting-portal/backend/pkg/middleware"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates the gin engine with the standard middleware chain and starts
// the websocket hub
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	if container.Config.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	rateLimiter := middleware.NewRateLimiter(container.Logger)
	engine.Use(rateLimiter.Middleware())

	go container.Hub.Run()

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    container.Config,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)

	authHandler := api.NewAuthHandler(r.Container.UserService, r.Container.JWTService, r.Logger)
	chatHandler := api.NewChatHandler(
		r.Container.SessionService,
		r.Container.MessageService,
		r.Container.CannedService,
		r.Logger,
	)

	authRoutes := r.Engine.Group("/api/auth")
	{
		authRoutes.POST("/signup/employee", authHandler.SignupEmployee)
		authRoutes.POST("/signup/consultant", authHandler.SignupConsultant)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", jwtAuth, authHandler.Me)
	}

	chatRoutes := r.Engine.Group("/api/chat")
	chatRoutes.Use(jwtAuth)
	{
		// The session list and reply shortcuts are dashboard surfaces
		chatRoutes.GET("/sessions", middleware.RequireAdmin(), chatHandler.ActiveSessions)
		chatRoutes.GET("/canned-responses", middleware.RequireAdmin(), chatHandler.CannedResponses)
		chatRoutes.POST("/canned-responses", middleware.RequireAdmin(), chatHandler.CreateCannedResponse)
		chatRoutes.GET("/messages/:sessionId", chatHandler.MessageHistory)
	}

	healthHandler := gin.WrapF(r.Container.HealthChecker.HTTPHandler())
	r.Engine.GET("/health", healthHandler)
	r.Engine.GET("/api/health", healthHandler)

	r.Engine.GET("/ws", ws.ServeWs(r.Container.Hub, r.Container.Relay, r.Logger))
}

// CORS must admit the websocket upgrade headers or browsers drop the
// handshake
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
