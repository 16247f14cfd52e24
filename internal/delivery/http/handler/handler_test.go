package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	pkgErrors "roomkey/pkg/errors"
)

func TestRespondErrorAppErrorStatuses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		code string
		want int
	}{
		{"INVALID_TRANSITION", http.StatusConflict},
		{"INVALID_STATUS", http.StatusConflict},
		{"FORBIDDEN", http.StatusForbidden},
		{"UNAUTHORIZED", http.StatusUnauthorized},
		{"TOKEN_GENERATION_FAILED", http.StatusInternalServerError},
		{"VALIDATION_ERROR", http.StatusBadRequest},
		{"PAYLOAD_MISMATCH", http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, pkgErrors.NewAppError(tc.code, "rejected", nil))
		if w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.code, w.Code, tc.want)
		}
	}
}

func TestRespondErrorUnknownErrorIs500(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, errors.New("database exploded"))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
