package payment

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/itzmejanak/ChargeGhar-sub001/model"
	allocsvc "github.com/itzmejanak/ChargeGhar-sub001/service/allocation"
	paymentsvc "github.com/itzmejanak/ChargeGhar-sub001/service/payment"
	"github.com/itzmejanak/ChargeGhar-sub001/util/apperr"
	"github.com/itzmejanak/ChargeGhar-sub001/util/httpx"
)

type Controller struct {
	Svc   paymentsvc.Service
	Alloc allocsvc.Service
	V     *validator.Validate
	Log   *slog.Logger
}

// POST /v1/payments/:purpose/intent
// @Summary Create a payment intent for a purpose (WALLET_TOPUP, RENTAL_CHARGE, EXTENSION)
// @Success 201 {object} paymentsvc.Created
// @Failure 400,401,409,500
func (h *Controller) CreateIntent(c echo.Context) error {
	purpose, ok := model.ValidPurpose(c.Param("purpose"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "unknown payment purpose"})
	}

	var req CreateIntentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "amount must be a positive decimal"})
	}
	walletPortion, pointsPortion := decimal.Zero, decimal.Zero
	if req.WalletPortion != "" {
		if walletPortion, err = decimal.NewFromString(req.WalletPortion); err != nil || walletPortion.Sign() < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid wallet_portion"})
		}
	}
	if req.PointsPortion != "" {
		if pointsPortion, err = decimal.NewFromString(req.PointsPortion); err != nil || pointsPortion.Sign() < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid points_portion"})
		}
	}

	userID := c.Get("user_id").(int64)
	out, err := h.Svc.Create(c.Request().Context(), userID, purpose, paymentsvc.CreateParams{
		Amount:        amount,
		Currency:      req.Currency,
		RentalID:      req.RentalID,
		WalletPortion: walletPortion,
		PointsPortion: pointsPortion,
	})
	if err != nil {
		if apperr.CodeOf(err) == "" {
			h.Log.Error("create intent failed", "err", err, "purpose", purpose)
		}
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// GET /v1/payments/status/:intent_id
func (h *Controller) Status(c echo.Context) error {
	userID := c.Get("user_id").(int64)
	in, err := h.Svc.Status(c.Request().Context(), userID, c.Param("intent_id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":            in.Status,
		"amount":            in.Amount,
		"gateway":           in.Gateway,
		"gateway_reference": in.GatewayRef,
		"completed_at":      in.CompletedAt,
		"failure_reason":    in.FailureReason,
		"expires_at":        in.ExpiresAt,
	})
}

// POST /v1/payments/calculate-options
func (h *Controller) CalculateOptions(c echo.Context) error {
	var req CalculateOptionsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	amount := decimal.Zero
	if req.Amount != "" {
		var err error
		if amount, err = decimal.NewFromString(req.Amount); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid amount"})
		}
	}

	userID := c.Get("user_id").(int64)
	out, err := h.Alloc.Calculate(c.Request().Context(), userID, allocsvc.Request{
		Scenario:  allocsvc.Scenario(req.Scenario),
		Amount:    amount,
		PackageID: req.PackageID,
		RentalID:  req.RentalID,
	})
	if err != nil {
		if apperr.CodeOf(err) != "" {
			return httpx.Error(c, err)
		}
		h.Log.Error("calculate options failed", "err", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, out)
}
