package routes

import (
	"net/http"

	"roomkey/internal/config"
	"roomkey/internal/delivery/http/handler"
	"roomkey/internal/domain/user"
	"roomkey/internal/infrastructure/database/postgres"
	"roomkey/internal/middleware"
	"roomkey/internal/usecase/agentsvc"
	"roomkey/internal/usecase/cardqueue"
	"roomkey/internal/usecase/pairing"
	usecaseUser "roomkey/internal/usecase/user"
	"roomkey/pkg/utils"

	"github.com/gin-gonic/gin"
)

const maxRequestBody = 1 << 20 // 1 MiB

// SetupRouter wires repositories, services and handlers into the Gin engine.
func SetupRouter(db *postgres.DB, cfg *config.Config, notifier cardqueue.Notifier) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(maxRequestBody))

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst)
	router.Use(rateLimiter.Middleware())

	// Repositories
	agentRepo := postgres.NewAgentRepository(db)
	deviceRepo := postgres.NewDeviceRepository(db)
	pairingRepo := postgres.NewPairingRepository(db)
	issueRepo := postgres.NewCardIssueRepository(db)
	logRepo := postgres.NewDeviceLogRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Services
	pairingService := pairing.NewService(pairingRepo, agentRepo, userRepo, cfg)
	agentService := agentsvc.NewService(agentRepo, deviceRepo, logRepo, issueRepo)
	queueService := cardqueue.NewService(issueRepo, agentRepo, notifier, cfg.Agent.MaxRetries)
	userService := usecaseUser.NewService(userRepo, cfg)

	// Handlers
	pairingHandler := handler.NewPairingHandler(pairingService)
	agentHandler := handler.NewAgentHandler(agentService)
	deviceHandler := handler.NewDeviceHandler(agentService)
	issueHandler := handler.NewCardIssueHandler(queueService)
	userHandler := handler.NewUserHandler(userService)

	userAuth := middleware.AuthMiddleware(cfg.JWT.Secret)
	agentAuth := middleware.AgentAuthMiddleware(agentRepo)

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			utils.ErrorResponse(c, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "Service healthy", gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", userHandler.Login)
		}

		pairingGroup := api.Group("/pairing")
		{
			pairingGroup.POST("/generate", userAuth, pairingHandler.Generate)
			pairingGroup.POST("/confirm", pairingHandler.Confirm)
		}

		agents := api.Group("/agents")
		{
			agents.GET("", userAuth, agentHandler.List)
			agents.POST("/:id/log", agentAuth, agentHandler.AppendLog)
		}

		api.GET("/devices", userAuth, deviceHandler.List)

		issues := api.Group("/card-issues")
		{
			issues.POST("", userAuth, issueHandler.Create)
			issues.GET("", userAuth, issueHandler.List)
			issues.GET("/:id", userAuth, issueHandler.Get)
			issues.POST("/claim", agentAuth, issueHandler.Claim)
			issues.PATCH("/:id/status", agentAuth, issueHandler.UpdateStatus)
			issues.POST("/:id/retry", userAuth, middleware.RequireRole(user.RoleAdmin), issueHandler.Retry)
		}
	}

	return router
}
