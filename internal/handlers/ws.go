package handlers

import (
	"github.com/gin-gonic/gin"
)

// WebSocket subscribes the caller to the live issue events of a project.
func (h *Handler) WebSocket(ctx *gin.Context) {
	actor, projectID, ok := h.request(ctx, "project_id")
	if !ok {
		return
	}

	if _, err := h.svc.GetProject(ctx.Request.Context(), actor, projectID); err != nil {
		h.respondError(ctx, err)
		return
	}

	h.log.Debug().Uint("project_id", projectID).Uint("user_id", actor.ID).Msg("websocket connected")
	h.hub.Serve(ctx.Writer, ctx.Request, projectID)
}
