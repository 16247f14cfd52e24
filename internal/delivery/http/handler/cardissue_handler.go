package handler

import (
	"errors"
	"net/http"

	"roomkey/internal/domain/cardissue"
	"roomkey/internal/middleware"
	"roomkey/internal/usecase/cardqueue"
	"roomkey/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CardIssueHandler struct {
	service *cardqueue.Service
}

func NewCardIssueHandler(service *cardqueue.Service) *CardIssueHandler {
	return &CardIssueHandler{service: service}
}

// Create enqueues a new card issue in status pending.
func (h *CardIssueHandler) Create(c *gin.Context) {
	var req cardqueue.CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if userID, ok := middleware.GetUserID(c); ok {
		req.UserID = &userID
	}

	resp, err := h.service.CreateIssue(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Card issue created", resp)
}

// List returns card issues matching the filter, newest first.
func (h *CardIssueHandler) List(c *gin.Context) {
	var req cardqueue.IssueFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.ListIssues(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Card issues retrieved", resp)
}

// Get returns a single card issue by ID.
func (h *CardIssueHandler) Get(c *gin.Context) {
	issueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid card issue ID")
		return
	}

	resp, err := h.service.GetIssue(c.Request.Context(), issueID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Card issue retrieved", resp)
}

// Claim assigns the oldest open issue of the agent's hotel to the calling
// agent. Responds 204 when there is nothing to claim.
func (h *CardIssueHandler) Claim(c *gin.Context) {
	a, ok := middleware.GetAgent(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Agent authentication required")
		return
	}

	resp, err := h.service.ClaimNext(c.Request.Context(), a.ID, a.HotelID)
	if err != nil {
		if errors.Is(err, cardissue.ErrNoClaimableIssue) {
			c.Status(http.StatusNoContent)
			return
		}
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Card issue claimed", resp)
}

// UpdateStatus advances a card issue through its lifecycle. Called by agents;
// the acting agent comes from the credential, never from the body.
func (h *CardIssueHandler) UpdateStatus(c *gin.Context) {
	a, ok := middleware.GetAgent(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Agent authentication required")
		return
	}

	issueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid card issue ID")
		return
	}

	var req cardqueue.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	req.AgentID = &a.ID

	resp, err := h.service.UpdateStatus(c.Request.Context(), issueID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Card issue updated", resp)
}

// Retry requeues a failed card issue. Back-office operation.
func (h *CardIssueHandler) Retry(c *gin.Context) {
	issueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid card issue ID")
		return
	}

	resp, err := h.service.Retry(c.Request.Context(), issueID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Card issue requeued", resp)
}
