package api

import (
	"errors"
	"net/http"

	"pos-service/internal/service"
	"pos-service/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeJSONError writes the {error, message, statusCode} envelope
func writeJSONError(c *gin.Context, status int, name, message string) {
	c.JSON(status, gin.H{
		"error":      name,
		"message":    message,
		"statusCode": status,
	})
}

func writeBindError(c *gin.Context, err error) {
	writeJSONError(c, http.StatusBadRequest, "ValidationError", err.Error())
}

// writeError maps service errors to HTTP statuses. Anything unrecognised
// is logged and reported as a 500 without internals.
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		notFoundErr   *service.ProductNotFoundError
		stockErr      *service.InsufficientStockError
		duplicateErr  *service.DuplicateRequestError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSONError(c, http.StatusBadRequest, "ValidationError", err.Error())

	case errors.As(err, &notFoundErr):
		writeJSONError(c, http.StatusBadRequest, "ProductNotFoundError", err.Error())

	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "InsufficientStockError",
			"message":    err.Error(),
			"statusCode": http.StatusBadRequest,
			"productId":  stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})

	case errors.As(err, &duplicateErr):
		writeJSONError(c, http.StatusConflict, "DuplicateError", err.Error())

	case errors.Is(err, store.ErrNotFound):
		writeJSONError(c, http.StatusNotFound, "NotFound", "Resource not found")

	default:
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		writeJSONError(c, http.StatusInternalServerError, "InternalServerError", "Something went wrong")
	}
}
