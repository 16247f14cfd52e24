package handler

import (
	"net/http"

	"roomkey/internal/usecase/agentsvc"
	"roomkey/pkg/utils"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	service *agentsvc.Service
}

func NewDeviceHandler(service *agentsvc.Service) *DeviceHandler {
	return &DeviceHandler{service: service}
}

// List returns encoder devices filtered by agent or hotel.
func (h *DeviceHandler) List(c *gin.Context) {
	var req agentsvc.DeviceFilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	resp, err := h.service.ListDevices(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved", resp)
}
