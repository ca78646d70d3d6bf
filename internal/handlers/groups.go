package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/services"
	"github.com/monocle-dev/tracker/internal/utils"
)

func (h *Handler) ListGroups(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	q, err := utils.ParseQuery(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	page, err := h.svc.ListGroups(ctx.Request.Context(), actor, q)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, pageOf(page, toGroup))
}

func (h *Handler) GetGroup(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "group_id")
	if !ok {
		return
	}

	group, err := h.svc.GetGroup(ctx.Request.Context(), actor, id)
	h.group(ctx, http.StatusOK, group, err)
}

func (h *Handler) CreateGroup(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	var cmd services.CreateGroupCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	group, err := h.svc.CreateGroup(ctx.Request.Context(), actor, cmd)
	h.group(ctx, http.StatusCreated, group, err)
}

func (h *Handler) UpdateGroup(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "group_id")
	if !ok {
		return
	}
	var cmd services.GroupCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	group, err := h.svc.UpdateGroup(ctx.Request.Context(), actor, id, cmd)
	h.group(ctx, http.StatusOK, group, err)
}

func (h *Handler) DeleteGroup(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "group_id")
	if !ok {
		return
	}

	h.noContent(ctx, h.svc.DeleteGroup(ctx.Request.Context(), actor, id))
}

func (h *Handler) ListMembers(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "group_id")
	if !ok {
		return
	}

	users, err := h.svc.ListMembers(ctx.Request.Context(), actor, id)
	h.users(ctx, users, err)
}

func (h *Handler) AddMembers(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "group_id")
	if !ok {
		return
	}
	var cmd services.MembersCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	h.noContent(ctx, h.svc.AddMembers(ctx.Request.Context(), actor, id, cmd))
}

func (h *Handler) RemoveMembers(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "group_id")
	if !ok {
		return
	}
	var cmd services.MembersCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	h.noContent(ctx, h.svc.RemoveMembers(ctx.Request.Context(), actor, id, cmd))
}

func (h *Handler) group(ctx *gin.Context, status int, group *models.Group, err error) {
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(status, toGroup(group))
}
