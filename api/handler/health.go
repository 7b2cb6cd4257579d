package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/reminders/api/transport"
	"github.com/fastygo/reminders/internal/infrastructure/monitor"
	"github.com/fastygo/reminders/pkg/httpcontext"
)

// StatusSource reports the last observed dependency status.
type StatusSource interface {
	GetStatus() monitor.Status
	IsOnline() bool
}

type HealthHandler struct {
	baseHandler
	monitor StatusSource
}

func NewHealthHandler(mon StatusSource, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	services := map[string]interface{}{
		"store": map[string]interface{}{
			"driver": status.StoreDriver,
			"online": status.Store,
		},
		"buffer": map[string]interface{}{
			"online": status.Buffer,
			"size":   status.BufferSize,
		},
	}
	if status.RedisEnabled {
		services["redis"] = status.Redis
	}
	payload := map[string]interface{}{
		"timestamp":  time.Now().UTC(),
		"last_check": status.LastCheck,
		"services":   services,
	}

	if h.monitor.IsOnline() {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", payload))
}
