package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/services"
	"github.com/monocle-dev/tracker/internal/utils"
)

func (h *Handler) ListTemplates(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	q, err := utils.ParseQuery(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	page, err := h.svc.ListTemplates(ctx.Request.Context(), actor, q)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, pageOf(page, toTemplate))
}

func (h *Handler) GetTemplate(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "template_id")
	if !ok {
		return
	}

	template, err := h.svc.GetTemplate(ctx.Request.Context(), actor, id)
	h.template(ctx, http.StatusOK, template, err)
}

func (h *Handler) CreateTemplate(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	var cmd services.CreateTemplateCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	template, err := h.svc.CreateTemplate(ctx.Request.Context(), actor, cmd)
	h.template(ctx, http.StatusCreated, template, err)
}

func (h *Handler) UpdateTemplate(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "template_id")
	if !ok {
		return
	}
	var cmd services.TemplateCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	template, err := h.svc.UpdateTemplate(ctx.Request.Context(), actor, id, cmd)
	h.template(ctx, http.StatusOK, template, err)
}

func (h *Handler) DeleteTemplate(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "template_id")
	if !ok {
		return
	}

	h.noContent(ctx, h.svc.DeleteTemplate(ctx.Request.Context(), actor, id))
}

func (h *Handler) LockTemplate(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "template_id")
	if !ok {
		return
	}

	template, err := h.svc.LockTemplate(ctx.Request.Context(), actor, id)
	h.template(ctx, http.StatusOK, template, err)
}

func (h *Handler) UnlockTemplate(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "template_id")
	if !ok {
		return
	}

	template, err := h.svc.UnlockTemplate(ctx.Request.Context(), actor, id)
	h.template(ctx, http.StatusOK, template, err)
}

func (h *Handler) GetTemplatePermissions(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "template_id")
	if !ok {
		return
	}

	perms, err := h.svc.GetTemplatePermissions(ctx.Request.Context(), actor, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toTemplatePermissions(perms))
}

func (h *Handler) SetTemplatePermission(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "template_id")
	if !ok {
		return
	}
	var cmd services.SetTemplatePermissionCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	perms, err := h.svc.SetTemplatePermission(ctx.Request.Context(), actor, id, cmd)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toTemplatePermissions(perms))
}

func (h *Handler) template(ctx *gin.Context, status int, template *models.Template, err error) {
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(status, toTemplate(template))
}
