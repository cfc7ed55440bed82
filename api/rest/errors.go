package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/charsheet/apperr"
)

// statusOf maps an error code to the HTTP status returned for it.
func statusOf(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeEquipFailed:
		return http.StatusBadGateway
	case apperr.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with {"error", "code"} and any error metadata.
// Unclassified errors are hidden behind "internal error".
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	code := apperr.CodeOf(err)
	status := statusOf(code)
	body := gin.H{"error": err.Error(), "code": code}
	if status == http.StatusInternalServerError {
		body["error"] = "internal error"
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		for k, v := range appErr.Meta {
			if _, taken := body[k]; !taken {
				body[k] = v
			}
		}
	}
	c.JSON(status, body)
}
