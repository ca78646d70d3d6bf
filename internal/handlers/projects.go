package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/services"
	"github.com/monocle-dev/tracker/internal/utils"
)

func (h *Handler) ListProjects(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	q, err := utils.ParseQuery(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	page, err := h.svc.ListProjects(ctx.Request.Context(), actor, q)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, pageOf(page, toProject))
}

func (h *Handler) GetProject(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "project_id")
	if !ok {
		return
	}

	project, err := h.svc.GetProject(ctx.Request.Context(), actor, id)
	h.project(ctx, http.StatusOK, project, err)
}

func (h *Handler) CreateProject(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	var cmd services.ProjectCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	project, err := h.svc.CreateProject(ctx.Request.Context(), actor, cmd)
	h.project(ctx, http.StatusCreated, project, err)
}

func (h *Handler) UpdateProject(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "project_id")
	if !ok {
		return
	}
	var cmd services.ProjectCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	project, err := h.svc.UpdateProject(ctx.Request.Context(), actor, id, cmd)
	h.project(ctx, http.StatusOK, project, err)
}

func (h *Handler) DeleteProject(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "project_id")
	if !ok {
		return
	}

	h.noContent(ctx, h.svc.DeleteProject(ctx.Request.Context(), actor, id))
}

func (h *Handler) SuspendProject(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "project_id")
	if !ok {
		return
	}

	project, err := h.svc.SuspendProject(ctx.Request.Context(), actor, id)
	h.project(ctx, http.StatusOK, project, err)
}

func (h *Handler) ResumeProject(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "project_id")
	if !ok {
		return
	}

	project, err := h.svc.ResumeProject(ctx.Request.Context(), actor, id)
	h.project(ctx, http.StatusOK, project, err)
}

func (h *Handler) project(ctx *gin.Context, status int, project *models.Project, err error) {
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(status, toProject(project))
}
