package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/services"
	"github.com/monocle-dev/tracker/internal/utils"
)

type issueIDsRequest struct {
	Issues []uint `json:"issues" binding:"required"`
}

func (h *Handler) ListIssues(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	q, err := utils.ParseQuery(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	page, err := h.svc.ListIssues(ctx.Request.Context(), actor, q)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, pageOf(page, toIssue))
}

func (h *Handler) GetIssue(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}

	view, err := h.svc.GetIssue(ctx.Request.Context(), actor, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, toIssueDetail(view))
}

func (h *Handler) CreateIssue(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	var cmd services.CreateIssueCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	issue, err := h.svc.CreateIssue(ctx.Request.Context(), actor, cmd)
	h.issue(ctx, http.StatusCreated, issue, err)
}

func (h *Handler) CloneIssue(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}
	var cmd services.CloneIssueCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	issue, err := h.svc.CloneIssue(ctx.Request.Context(), actor, id, cmd)
	h.issue(ctx, http.StatusCreated, issue, err)
}

func (h *Handler) UpdateIssue(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}
	var cmd services.UpdateIssueCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	issue, err := h.svc.UpdateIssue(ctx.Request.Context(), actor, id, cmd)
	h.issue(ctx, http.StatusOK, issue, err)
}

func (h *Handler) DeleteIssue(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}

	h.noContent(ctx, h.svc.DeleteIssue(ctx.Request.Context(), actor, id))
}

func (h *Handler) ChangeState(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}
	stateID, ok := h.id(ctx, "state_id")
	if !ok {
		return
	}
	var cmd services.ChangeStateCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	issue, err := h.svc.ChangeState(ctx.Request.Context(), actor, id, stateID, cmd)
	h.issue(ctx, http.StatusOK, issue, err)
}

func (h *Handler) ReassignIssue(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}
	var cmd services.ReassignCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	issue, err := h.svc.ReassignIssue(ctx.Request.Context(), actor, id, cmd)
	h.issue(ctx, http.StatusOK, issue, err)
}

func (h *Handler) SuspendIssue(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}
	var cmd services.SuspendCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	issue, err := h.svc.SuspendIssue(ctx.Request.Context(), actor, id, cmd)
	h.issue(ctx, http.StatusOK, issue, err)
}

func (h *Handler) ResumeIssue(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}

	issue, err := h.svc.ResumeIssue(ctx.Request.Context(), actor, id)
	h.issue(ctx, http.StatusOK, issue, err)
}

func (h *Handler) MarkRead(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	var req issueIDsRequest
	if !h.bind(ctx, &req) {
		return
	}

	h.noContent(ctx, h.svc.MarkRead(ctx.Request.Context(), actor, req.Issues))
}

func (h *Handler) MarkUnread(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}
	var req issueIDsRequest
	if !h.bind(ctx, &req) {
		return
	}

	h.noContent(ctx, h.svc.MarkUnread(ctx.Request.Context(), actor, req.Issues))
}

func (h *Handler) WatchIssue(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}

	h.noContent(ctx, h.svc.WatchIssue(ctx.Request.Context(), actor, id))
}

func (h *Handler) UnwatchIssue(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}

	h.noContent(ctx, h.svc.UnwatchIssue(ctx.Request.Context(), actor, id))
}

func (h *Handler) ListWatchers(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}

	users, err := h.svc.ListWatchers(ctx.Request.Context(), actor, id)
	h.users(ctx, users, err)
}

func (h *Handler) ListEvents(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}

	list, err := h.svc.ListEvents(ctx.Request.Context(), actor, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": listOf(list, toEvent)})
}

func (h *Handler) ListChanges(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}

	list, err := h.svc.ListChanges(ctx.Request.Context(), actor, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": listOf(list, toChange)})
}

func (h *Handler) issue(ctx *gin.Context, status int, issue *models.Issue, err error) {
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(status, toIssue(issue))
}
