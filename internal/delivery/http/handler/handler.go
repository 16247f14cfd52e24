package handler

import (
	"errors"
	"net/http"

	"roomkey/internal/domain/agent"
	"roomkey/internal/domain/cardissue"
	"roomkey/internal/domain/user"
	pkgErrors "roomkey/pkg/errors"
	"roomkey/pkg/utils"

	"github.com/gin-gonic/gin"
)

// respondError translates domain and application errors into HTTP responses.
// Unknown errors become 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, agent.ErrPairingTokenInvalid),
		errors.Is(err, agent.ErrPairingTokenExpired),
		errors.Is(err, agent.ErrPairingTokenUsed):
		utils.ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, agent.ErrFingerprintTaken):
		utils.ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, agent.ErrAgentNotFound),
		errors.Is(err, agent.ErrDeviceNotFound),
		errors.Is(err, cardissue.ErrIssueNotFound),
		errors.Is(err, user.ErrUserNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, cardissue.ErrStaleUpdate),
		errors.Is(err, cardissue.ErrIssueClaimed):
		utils.ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, cardissue.ErrRetryLimitReached):
		utils.ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, cardissue.ErrInvalidEventType):
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, pkgErrors.ErrInvalidCredentials),
		errors.Is(err, pkgErrors.ErrInvalidToken),
		errors.Is(err, pkgErrors.ErrUnauthorized):
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, user.ErrUserInactive),
		errors.Is(err, pkgErrors.ErrInsufficientPermissions):
		utils.ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, pkgErrors.ErrInvalidInput):
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		var appErr *pkgErrors.AppError
		if errors.As(err, &appErr) {
			utils.ErrorResponse(c, appErrorStatus(appErr.Code), appErr.Message)
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
	}
}

// appErrorStatus maps application error codes to HTTP statuses. Codes
// without a mapping are treated as bad requests.
func appErrorStatus(code string) int {
	switch code {
	case "UNAUTHORIZED":
		return http.StatusUnauthorized
	case "FORBIDDEN":
		return http.StatusForbidden
	case "INVALID_TRANSITION", "INVALID_STATUS":
		return http.StatusConflict
	case "TOKEN_GENERATION_FAILED":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
