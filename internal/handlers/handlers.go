// Package handlers binds HTTP requests to service commands and renders the
// results as JSON.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/auth"
	"github.com/monocle-dev/tracker/internal/markdown"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/realtime"
	"github.com/monocle-dev/tracker/internal/services"
	"github.com/monocle-dev/tracker/internal/utils"
	"github.com/rs/zerolog"
)

// StatusReporter describes background work for the health check.
type StatusReporter interface {
	Status() map[string]any
}

// CookieOptions controls the token cookie set on login.
type CookieOptions struct {
	Domain string
	Secure bool
}

type Handler struct {
	svc      *services.Service
	tokens   *auth.Tokens
	renderer *markdown.Renderer
	hub      *realtime.Hub
	jobs     StatusReporter
	cookie   CookieOptions
	log      zerolog.Logger
}

type Options struct {
	Service   *services.Service
	Tokens    *auth.Tokens
	Renderer  *markdown.Renderer
	Hub       *realtime.Hub
	Scheduler StatusReporter
	Cookie    CookieOptions
	Logger    zerolog.Logger
}

func New(opts Options) *Handler {
	if opts.Renderer == nil {
		opts.Renderer = markdown.NewRenderer()
	}
	return &Handler{
		svc:      opts.Service,
		tokens:   opts.Tokens,
		renderer: opts.Renderer,
		hub:      opts.Hub,
		jobs:     opts.Scheduler,
		cookie:   opts.Cookie,
		log:      opts.Logger,
	}
}

// respondError writes err as {"error", "code"} with the matching status.
// Unexpected errors are logged and hidden from the client.
func (h *Handler) respondError(ctx *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	message := err.Error()

	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}
	if code == apperrors.CodeUnknown {
		_ = ctx.Error(err)
		event := h.log.Error().Err(err).Str("path", ctx.FullPath())
		if userID, idErr := utils.GetCurrentUserID(ctx); idErr == nil {
			event = event.Uint("user_id", userID)
		}
		event.Msg("request failed")
		message = "Internal server error"
	}

	ctx.AbortWithStatusJSON(code.HTTPStatus(), gin.H{"error": message, "code": code})
}

// bind decodes the JSON body into dst and reports binding failures as
// validation errors.
func (h *Handler) bind(ctx *gin.Context, dst any) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		h.respondError(ctx, apperrors.Validation("Invalid request: %v", err))
		return false
	}
	return true
}

// actor returns the authenticated user, writing a 401 when there is none.
func (h *Handler) actor(ctx *gin.Context) (*models.User, bool) {
	user, err := utils.GetCurrentUser(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return nil, false
	}
	return user, true
}

func (h *Handler) id(ctx *gin.Context, name string) (uint, bool) {
	id, err := utils.ParamID(ctx, name)
	if err != nil {
		h.respondError(ctx, err)
		return 0, false
	}
	return id, true
}

// request gathers the actor and the path ID shared by most endpoints.
func (h *Handler) request(ctx *gin.Context, param string) (*models.User, uint, bool) {
	user, ok := h.actor(ctx)
	if !ok {
		return nil, 0, false
	}
	id, ok := h.id(ctx, param)
	if !ok {
		return nil, 0, false
	}
	return user, id, true
}

func (h *Handler) noContent(ctx *gin.Context, err error) {
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
