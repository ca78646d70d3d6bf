package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/services"
	"github.com/monocle-dev/tracker/internal/utils"
)

func (h *Handler) ListStates(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	q, err := utils.ParseQuery(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	page, err := h.svc.ListStates(ctx.Request.Context(), actor, q)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, pageOf(page, toState))
}

func (h *Handler) GetState(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "state_id")
	if !ok {
		return
	}

	state, err := h.svc.GetState(ctx.Request.Context(), actor, id)
	h.state(ctx, http.StatusOK, state, err)
}

func (h *Handler) CreateState(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	var cmd services.CreateStateCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	state, err := h.svc.CreateState(ctx.Request.Context(), actor, cmd)
	h.state(ctx, http.StatusCreated, state, err)
}

func (h *Handler) UpdateState(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "state_id")
	if !ok {
		return
	}
	var cmd services.StateCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	state, err := h.svc.UpdateState(ctx.Request.Context(), actor, id, cmd)
	h.state(ctx, http.StatusOK, state, err)
}

func (h *Handler) DeleteState(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "state_id")
	if !ok {
		return
	}

	h.noContent(ctx, h.svc.DeleteState(ctx.Request.Context(), actor, id))
}

func (h *Handler) SetInitialState(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "state_id")
	if !ok {
		return
	}

	state, err := h.svc.SetInitialState(ctx.Request.Context(), actor, id)
	h.state(ctx, http.StatusOK, state, err)
}

func (h *Handler) GetTransitions(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "state_id")
	if !ok {
		return
	}

	transitions, err := h.svc.GetTransitions(ctx.Request.Context(), actor, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toTransitions(transitions))
}

func (h *Handler) SetTransitions(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "state_id")
	if !ok {
		return
	}
	var cmd services.SetTransitionsCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	transitions, err := h.svc.SetTransitions(ctx.Request.Context(), actor, id, cmd)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toTransitions(transitions))
}

func (h *Handler) GetResponsibleGroups(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "state_id")
	if !ok {
		return
	}

	groups, err := h.svc.GetResponsibleGroups(ctx.Request.Context(), actor, id)
	h.groups(ctx, groups, err)
}

func (h *Handler) SetResponsibleGroups(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "state_id")
	if !ok {
		return
	}
	var cmd services.SetResponsibleGroupsCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	groups, err := h.svc.SetResponsibleGroups(ctx.Request.Context(), actor, id, cmd)
	h.groups(ctx, groups, err)
}

// ListResponsibles returns who may be assigned issues entering the state.
func (h *Handler) ListResponsibles(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "state_id")
	if !ok {
		return
	}

	users, err := h.svc.ListResponsibles(ctx.Request.Context(), actor, id)
	h.users(ctx, users, err)
}

func (h *Handler) state(ctx *gin.Context, status int, state *models.State, err error) {
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(status, toState(state))
}

func (h *Handler) groups(ctx *gin.Context, groups []models.Group, err error) {
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": listOf(groups, toGroup)})
}

func (h *Handler) users(ctx *gin.Context, users []models.User, err error) {
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": listOf(users, userSummary)})
}
