package rental

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	rs "github.com/itzmejanak/ChargeGhar-sub001/service/rental"
	"github.com/itzmejanak/ChargeGhar-sub001/util/apperr"
	"github.com/itzmejanak/ChargeGhar-sub001/util/httpx"
)

type Controller struct {
	Svc rs.Service
	Log *slog.Logger
}

func rentalID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GET /v1/rentals/:id
// Overdue minutes, late fee and estimated total are computed at read time.
func (h *Controller) Detail(c echo.Context) error {
	id, ok := rentalID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	v, err := h.Svc.Detail(c.Request().Context(), uid, id)
	if err != nil {
		if apperr.CodeOf(err) == "" {
			h.Log.Error("rental detail", "err", err)
		}
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// POST /v1/rentals/:id/cancel
func (h *Controller) Cancel(c echo.Context) error {
	id, ok := rentalID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	if err := h.Svc.Cancel(c.Request().Context(), uid, id); err != nil {
		if apperr.CodeOf(err) == "" {
			h.Log.Error("rental cancel", "err", err)
		}
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "cancelled"})
}

// GET /v1/rentals/my
func (h *Controller) MyHistory(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	rows, err := h.Svc.MyHistory(c.Request().Context(), uid)
	if err != nil {
		h.Log.Error("rental history", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/packages
func (h *Controller) ListPackages(c echo.Context) error {
	pkgs, err := h.Svc.ListPackages(c.Request().Context())
	if err != nil {
		h.Log.Error("list packages", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": pkgs})
}
