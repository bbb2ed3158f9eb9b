package webhook

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	gatewayrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/gateway"
	queuerepo "github.com/itzmejanak/ChargeGhar-sub001/repository/queue"
)

type Controller struct {
	Queue    queuerepo.Repo
	Gateways *gatewayrepo.Registry
	Log      *slog.Logger
}

// POST /webhooks/:provider
//
// Responds 200 only after the notification is durably enqueued (or the
// provider is unknown, which no retry can fix). Any other outcome returns a
// status the provider reads as "retry".
func (h *Controller) Handle(c echo.Context) error {
	provider := c.Param("provider")
	if !h.Gateways.Known(provider) {
		h.Log.Warn("webhook for unknown provider dropped", "provider", provider)
		return c.JSON(http.StatusOK, echo.Map{"message": "ignored"})
	}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil || len(raw) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "empty payload"})
	}

	sig := c.Request().Header.Get("X-Callback-Signature")
	jobID, err := h.Queue.Enqueue(c.Request().Context(), provider, sig, raw)
	if err != nil {
		h.Log.Error("webhook enqueue failed", "provider", provider, "err", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"message": "try again"})
	}

	h.Log.Info("webhook enqueued", "provider", provider, "job_id", jobID)
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
