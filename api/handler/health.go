package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskhub/backend/api/transport"
	"github.com/taskhub/backend/internal/infrastructure/monitor"
	"github.com/taskhub/backend/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor *monitor.Monitor
}

func NewHealthHandler(mon *monitor.Monitor, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

type healthServices struct {
	PostgreSQL bool         `json:"postgresql"`
	Redis      bool         `json:"redis"`
	Outbox     healthOutbox `json:"outbox"`
}

type healthOutbox struct {
	Online bool `json:"online"`
	Size   int  `json:"size"`
}

// Check reports dependency health. Redis and the outbox are informational;
// only Postgres decides readiness, so the API keeps serving through cache or
// queue outages.
//
// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	payload := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"services": healthServices{
			PostgreSQL: status.PostgreSQL,
			Redis:      status.Redis,
			Outbox: healthOutbox{
				Online: status.Outbox,
				Size:   status.OutboxSize,
			},
		},
	}

	if !status.PostgreSQL {
		h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, payload)
}
