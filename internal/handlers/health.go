package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/health"
)

func (h *Handler) HealthCheck(ctx *gin.Context) {
	db := health.CheckDatabase(ctx.Request.Context(), h.svc.DB(), 2*time.Second)

	status, code := "ok", http.StatusOK
	if !db.OK() {
		h.log.Warn().Str("error", db.Error).Msg("database ping failed")
		status, code = "degraded", http.StatusServiceUnavailable
	}

	body := gin.H{
		"status":    status,
		"message":   "Tracker is running",
		"timestamp": h.svc.Now().Format(time.RFC3339),
		"database":  db,
	}
	if h.jobs != nil {
		body["scheduler"] = h.jobs.Status()
	}

	ctx.JSON(code, body)
}
