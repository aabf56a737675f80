package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"colony-counter/internal/domain/entity"
)

// ErrorResponse ответ с ошибкой
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// statusFor сопоставляет доменные ошибки с HTTP-кодами
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrInvalidParameters):
		return http.StatusUnprocessableEntity, "invalid detection parameters"
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, entity.ErrDecode):
		return http.StatusBadRequest, "cannot decode image"
	case errors.Is(err, entity.ErrUnsupportedImage):
		return http.StatusBadRequest, "unsupported image type"
	case errors.Is(err, entity.ErrInvalidColony):
		return http.StatusBadRequest, "invalid colony annotation"
	case errors.Is(err, entity.ErrNoImagesFound):
		return http.StatusBadRequest, "no images in request"
	case errors.Is(err, entity.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, "detector backend is not available"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

func badRequest(c *gin.Context, message string, err error) {
	resp := ErrorResponse{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}
