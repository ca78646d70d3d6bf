package handlers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/services"
)

func (h *Handler) ListComments(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}

	list, err := h.svc.ListComments(ctx.Request.Context(), actor, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	data := make([]CommentResponse, 0, len(list))
	for i := range list {
		comment, err := h.toComment(&list[i])
		if err != nil {
			h.respondError(ctx, err)
			return
		}
		data = append(data, comment)
	}

	ctx.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *Handler) AddComment(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}
	var cmd services.CommentCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	comment, err := h.svc.AddComment(ctx.Request.Context(), actor, id, cmd)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	comment.Event.User = *actor

	resp, err := h.toComment(comment)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, resp)
}

// toComment renders the comment body to sanitized HTML.
func (h *Handler) toComment(c *models.Comment) (CommentResponse, error) {
	html, err := h.renderer.Render(c.Body)
	if err != nil {
		return CommentResponse{}, err
	}
	return CommentResponse{
		ID:        c.ID,
		Body:      c.Body,
		HTML:      html,
		Private:   c.Private,
		User:      userSummary(&c.Event.User),
		CreatedAt: c.CreatedAt,
	}, nil
}

func (h *Handler) ListFiles(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}

	list, err := h.svc.ListFiles(ctx.Request.Context(), actor, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": listOf(list, toFile)})
}

// AttachFile accepts a multipart upload in the "file" form field.
func (h *Handler) AttachFile(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		h.respondError(ctx, apperrors.Validation("A file is required"))
		return
	}
	content, err := header.Open()
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	defer content.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	file, err := h.svc.AttachFile(ctx.Request.Context(), actor, id, services.Upload{
		Name:     header.Filename,
		MimeType: mimeType,
		Content:  content,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	file.Event.User = *actor

	ctx.JSON(http.StatusCreated, toFile(file))
}

func (h *Handler) DownloadFile(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "file_id")
	if !ok {
		return
	}

	file, content, err := h.svc.DownloadFile(ctx.Request.Context(), actor, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	defer content.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.FileName})
	ctx.DataFromReader(http.StatusOK, file.FileSize, file.MimeType, content, map[string]string{
		"Content-Disposition": disposition,
		"Cache-Control":       "private",
	})
}

func (h *Handler) DeleteFile(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "file_id")
	if !ok {
		return
	}

	h.noContent(ctx, h.svc.DeleteFile(ctx.Request.Context(), actor, id))
}

func (h *Handler) ListDependencies(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}

	list, err := h.svc.ListDependencies(ctx.Request.Context(), actor, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"data": listOf(list, toDependency)})
}

func (h *Handler) AddDependency(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}
	var cmd services.DependencyCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	h.noContent(ctx, h.svc.AddDependency(ctx.Request.Context(), actor, id, cmd))
}

func (h *Handler) RemoveDependency(ctx *gin.Context) {
	actor, id, ok := h.request(ctx, "issue_id")
	if !ok {
		return
	}
	dependencyID, ok := h.id(ctx, "dependency_id")
	if !ok {
		return
	}

	h.noContent(ctx, h.svc.RemoveDependency(ctx.Request.Context(), actor, id, dependencyID))
}
