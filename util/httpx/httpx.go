package httpx

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/itzmejanak/ChargeGhar-sub001/util/apperr"
)

// StatusFor maps business error codes to HTTP statuses, so controllers stay
// a thin switchless layer.
func StatusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeNotOwner:
		return http.StatusForbidden
	case apperr.CodeDuplicateIntent,
		apperr.CodeInvalidStateTransition,
		apperr.CodeExpiredIntent,
		apperr.CodeCancellationNotEligible:
		return http.StatusConflict
	case apperr.CodeInsufficientBalance,
		apperr.CodeInvalidWebhook:
		return http.StatusBadRequest
	case apperr.CodeUnresolvedIntent,
		apperr.CodeGatewayVerification:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Error writes the structured error body: a stable machine code plus a
// human-readable message, never a generic "operation failed".
func Error(c echo.Context, err error) error {
	code := apperr.CodeOf(err)
	if code == "" {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(StatusFor(code), echo.Map{
		"code":    string(code),
		"message": apperr.MessageOf(err),
	})
}
