package handler

import (
	"net/http"

	"roomkey/internal/middleware"
	"roomkey/internal/usecase/agentsvc"
	"roomkey/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AgentHandler struct {
	service *agentsvc.Service
}

func NewAgentHandler(service *agentsvc.Service) *AgentHandler {
	return &AgentHandler{service: service}
}

// List returns all agents matching the filter, each with its open queue length.
func (h *AgentHandler) List(c *gin.Context) {
	var req agentsvc.AgentFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.ListAgents(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Agents retrieved", resp)
}

// AppendLog records a device event reported by an authenticated agent.
// The path agent ID must match the credential used to authenticate.
func (h *AgentHandler) AppendLog(c *gin.Context) {
	a, ok := middleware.GetAgent(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Agent authentication required")
		return
	}

	pathID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid agent ID")
		return
	}
	if pathID != a.ID {
		utils.ErrorResponse(c, http.StatusForbidden, "Agent ID does not match credential")
		return
	}

	var req agentsvc.DeviceLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.AppendLog(c.Request.Context(), a.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Log recorded", resp)
}
