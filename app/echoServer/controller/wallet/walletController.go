package wallet

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/itzmejanak/ChargeGhar-sub001/service/wallet"
)

type Controller struct {
	Svc wallet.Service
	Log *slog.Logger
}

// GET /v1/wallet/balance
func (h *Controller) Balance(c echo.Context) error {
	userID := c.Get("user_id").(int64)
	w, err := h.Svc.Balance(c.Request().Context(), userID)
	if err != nil {
		h.Log.Error("wallet balance failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"balance": w.Balance,
		"points":  w.Points,
	})
}

// GET /v1/wallet/ledger
func (h *Controller) Ledger(c echo.Context) error {
	userID := c.Get("user_id").(int64)
	rows, err := h.Svc.Ledger(c.Request().Context(), userID)
	if err != nil {
		h.Log.Error("wallet ledger failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}
