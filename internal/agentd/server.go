package agentd

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roomkey/internal/domain/cardissue"
	"roomkey/internal/middleware"
	"roomkey/pkg/utils"
)

// NewLocalServer builds the loopback HTTP surface the agent UI talks to.
// It is bound to 127.0.0.1 by the caller and carries no authentication:
// anything able to reach it already runs on the agent machine.
func NewLocalServer(runner *Runner, hub *Hub) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())

	router.GET("/status", func(c *gin.Context) {
		utils.SuccessResponse(c, http.StatusOK, "Agent status", runner.Status(c.Request.Context()))
	})

	router.POST("/encode-card", func(c *gin.Context) {
		var payload cardissue.CardPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid card payload")
			return
		}

		result := runner.EncodeCard(c.Request.Context(), payload)
		utils.SuccessResponse(c, http.StatusOK, "Sequence finished", result)
	})

	router.GET("/ws/progress", func(c *gin.Context) {
		hub.Serve(c.Writer, c.Request)
	})

	return router
}
