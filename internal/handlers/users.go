package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/services"
	"github.com/monocle-dev/tracker/internal/utils"
)

func (h *Handler) ListUsers(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	q, err := utils.ParseQuery(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	page, err := h.svc.ListUsers(ctx.Request.Context(), actor, q)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, pageOf(page, h.toUser))
}

func (h *Handler) GetUser(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "user_id")
	if !ok {
		return
	}

	user, err := h.svc.GetUser(ctx.Request.Context(), actor, id)
	h.user(ctx, http.StatusOK, user, err)
}

func (h *Handler) CreateUser(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	var cmd services.CreateUserCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	user, err := h.svc.CreateUser(ctx.Request.Context(), actor, cmd)
	h.user(ctx, http.StatusCreated, user, err)
}

func (h *Handler) UpdateUser(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "user_id")
	if !ok {
		return
	}
	var cmd services.UserCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	user, err := h.svc.UpdateUser(ctx.Request.Context(), actor, id, cmd)
	h.user(ctx, http.StatusOK, user, err)
}

func (h *Handler) DeleteUser(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "user_id")
	if !ok {
		return
	}

	h.noContent(ctx, h.svc.DeleteUser(ctx.Request.Context(), actor, id))
}

func (h *Handler) DisableUser(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "user_id")
	if !ok {
		return
	}

	user, err := h.svc.DisableUser(ctx.Request.Context(), actor, id)
	h.user(ctx, http.StatusOK, user, err)
}

func (h *Handler) EnableUser(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "user_id")
	if !ok {
		return
	}

	user, err := h.svc.EnableUser(ctx.Request.Context(), actor, id)
	h.user(ctx, http.StatusOK, user, err)
}

func (h *Handler) UnlockUser(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "user_id")
	if !ok {
		return
	}

	user, err := h.svc.UnlockUser(ctx.Request.Context(), actor, id)
	h.user(ctx, http.StatusOK, user, err)
}

func (h *Handler) SetPassword(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "user_id")
	if !ok {
		return
	}
	var cmd services.SetPasswordCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	h.noContent(ctx, h.svc.SetPassword(ctx.Request.Context(), actor, id, cmd))
}

func (h *Handler) AddUserGroups(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "user_id")
	if !ok {
		return
	}
	var cmd services.UserGroupsCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	user, err := h.svc.AddUserGroups(ctx.Request.Context(), actor, id, cmd)
	h.user(ctx, http.StatusOK, user, err)
}

func (h *Handler) RemoveUserGroups(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "user_id")
	if !ok {
		return
	}
	var cmd services.UserGroupsCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	user, err := h.svc.RemoveUserGroups(ctx.Request.Context(), actor, id, cmd)
	h.user(ctx, http.StatusOK, user, err)
}

func (h *Handler) user(ctx *gin.Context, status int, user *models.User, err error) {
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(status, h.toUser(user))
}
