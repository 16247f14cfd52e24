package middleware

import (
	"net/http"

	"roomkey/internal/domain/agent"
	"roomkey/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	AgentTokenHeader = "X-Agent-Token"
	AgentKey         = "agent"
)

// AgentAuthMiddleware authenticates a paired agent by its opaque credential.
// The resolved agent entity is stored in the context for handlers.
func AgentAuthMiddleware(repo agent.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(AgentTokenHeader)
		if token == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Agent token required")
			c.Abort()
			return
		}

		a, err := repo.GetByToken(c.Request.Context(), token)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid agent token")
			c.Abort()
			return
		}

		c.Set(AgentKey, a)
		c.Next()
	}
}

// GetAgent retrieves the authenticated agent from the Gin context.
func GetAgent(c *gin.Context) (*agent.Agent, bool) {
	v, exists := c.Get(AgentKey)
	if !exists {
		return nil, false
	}
	a, ok := v.(*agent.Agent)
	return a, ok
}
