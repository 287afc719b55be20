package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lecoq-erp/internal/services/distribution"
	"lecoq-erp/internal/services/inventory"
	"lecoq-erp/internal/services/maquila"
	"lecoq-erp/internal/services/orders"
	"lecoq-erp/internal/services/users"
)

func successResponse(message string, data interface{}) gin.H {
	return gin.H{
		"success": true,
		"message": message,
		"data":    data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"success": false,
		"message": message,
	}
}

// statusFor maps service error kinds to HTTP statuses in one place so every
// handler answers consistently.
func statusFor(err error) int {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, orders.ErrUserNotFound),
		errors.Is(err, distribution.ErrDeliveryNotFound),
		errors.Is(err, maquila.ErrMaquilaNotFound),
		errors.Is(err, maquila.ErrDetailNotFound),
		errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, users.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, distribution.ErrDuplicateDelivery),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, distribution.ErrInvalidTransition),
		errors.Is(err, maquila.ErrInvalidTransition),
		errors.Is(err, maquila.ErrNotFinalized),
		errors.Is(err, maquila.ErrAlreadyReceived),
		errors.Is(err, users.ErrUsernameTaken),
		errors.Is(err, users.ErrEmailTaken):
		return http.StatusConflict

	case errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, distribution.ErrInvalidStatus),
		errors.Is(err, maquila.ErrInvalidStatus),
		errors.Is(err, maquila.ErrInvalidQuantity),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, orders.ErrInvalidTotal),
		errors.Is(err, maquila.ErrInvalidTotal),
		errors.Is(err, inventory.ErrInvalidPrice),
		errors.Is(err, inventory.ErrInvalidStock),
		errors.Is(err, users.ErrInvalidRole):
		return http.StatusBadRequest

	case errors.Is(err, users.ErrInvalidCredentials),
		errors.Is(err, users.ErrUserInactive):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), errorResponse(err.Error()))
}

// parseDateRange reads two YYYY-MM-DD bounds and widens the upper one to the
// end of its day so the range is inclusive.
func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to.Add(24 * time.Hour), nil
}
