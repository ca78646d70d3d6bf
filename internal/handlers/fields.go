package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/services"
	"github.com/monocle-dev/tracker/internal/utils"
)

func (h *Handler) ListFields(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	q, err := utils.ParseQuery(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	page, err := h.svc.ListFields(ctx.Request.Context(), actor, q)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, pageOf(page, toField))
}

func (h *Handler) GetField(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "field_id")
	if !ok {
		return
	}

	field, err := h.svc.GetField(ctx.Request.Context(), actor, id)
	h.field(ctx, http.StatusOK, field, err)
}

func (h *Handler) CreateField(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	var cmd services.CreateFieldCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	field, err := h.svc.CreateField(ctx.Request.Context(), actor, cmd)
	h.field(ctx, http.StatusCreated, field, err)
}

func (h *Handler) UpdateField(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "field_id")
	if !ok {
		return
	}
	var cmd services.FieldCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	field, err := h.svc.UpdateField(ctx.Request.Context(), actor, id, cmd)
	h.field(ctx, http.StatusOK, field, err)
}

func (h *Handler) DeleteField(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "field_id")
	if !ok {
		return
	}

	h.noContent(ctx, h.svc.DeleteField(ctx.Request.Context(), actor, id))
}

func (h *Handler) SetFieldPosition(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "field_id")
	if !ok {
		return
	}
	var cmd services.SetFieldPositionCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	field, err := h.svc.SetFieldPosition(ctx.Request.Context(), actor, id, cmd)
	h.field(ctx, http.StatusOK, field, err)
}

func (h *Handler) GetFieldPermissions(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "field_id")
	if !ok {
		return
	}

	perms, err := h.svc.GetFieldPermissions(ctx.Request.Context(), actor, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toFieldPermissions(perms))
}

func (h *Handler) SetFieldPermission(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "field_id")
	if !ok {
		return
	}
	var cmd services.SetFieldPermissionCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	perms, err := h.svc.SetFieldPermission(ctx.Request.Context(), actor, id, cmd)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toFieldPermissions(perms))
}

func (h *Handler) field(ctx *gin.Context, status int, field *models.Field, err error) {
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(status, toField(field))
}

func (h *Handler) ListListItems(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	q, err := utils.ParseQuery(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	page, err := h.svc.ListListItems(ctx.Request.Context(), actor, q)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, pageOf(page, toListItem))
}

func (h *Handler) GetListItem(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "item_id")
	if !ok {
		return
	}

	item, err := h.svc.GetListItem(ctx.Request.Context(), actor, id)
	h.listItem(ctx, http.StatusOK, item, err)
}

func (h *Handler) CreateListItem(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	var cmd services.CreateListItemCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	item, err := h.svc.CreateListItem(ctx.Request.Context(), actor, cmd)
	h.listItem(ctx, http.StatusCreated, item, err)
}

func (h *Handler) UpdateListItem(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "item_id")
	if !ok {
		return
	}
	var cmd services.ListItemCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	item, err := h.svc.UpdateListItem(ctx.Request.Context(), actor, id, cmd)
	h.listItem(ctx, http.StatusOK, item, err)
}

func (h *Handler) DeleteListItem(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "item_id")
	if !ok {
		return
	}

	h.noContent(ctx, h.svc.DeleteListItem(ctx.Request.Context(), actor, id))
}

func (h *Handler) listItem(ctx *gin.Context, status int, item *models.ListItem, err error) {
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(status, toListItem(item))
}
