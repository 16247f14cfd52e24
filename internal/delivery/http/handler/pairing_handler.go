package handler

import (
	"net/http"

	"roomkey/internal/middleware"
	"roomkey/internal/usecase/pairing"
	"roomkey/pkg/utils"

	"github.com/gin-gonic/gin"
)

type PairingHandler struct {
	service *pairing.Service
}

func NewPairingHandler(service *pairing.Service) *PairingHandler {
	return &PairingHandler{service: service}
}

// Generate mints a short-lived, single-use pairing token for a new agent.
// Requires an authenticated back-office user.
func (h *PairingHandler) Generate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req pairing.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Generate(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Pairing token generated", resp)
}

// Confirm redeems a pairing token and returns the agent's permanent credential.
// This endpoint is unauthenticated: the pairing token itself is the proof.
func (h *PairingHandler) Confirm(c *gin.Context) {
	var req pairing.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Confirm(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Agent paired", resp)
}
