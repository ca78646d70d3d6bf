package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/middleware"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/services"
)

func (h *Handler) setToken(ctx *gin.Context, token string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   maxAge,
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// signIn issues a token for the user and sets it as a cookie.
func (h *Handler) signIn(ctx *gin.Context, status int, user *models.User) {
	token, err := h.tokens.Generate(user.ID, user.Email)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.setToken(ctx, token, int(h.tokens.Expiry().Seconds()))

	ctx.JSON(status, gin.H{
		"user":  h.toUser(user),
		"token": token,
	})
}

func (h *Handler) Login(ctx *gin.Context) {
	var cmd services.LoginCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	user, err := h.svc.Login(ctx.Request.Context(), cmd)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.signIn(ctx, http.StatusOK, user)
}

func (h *Handler) Register(ctx *gin.Context) {
	var cmd services.RegisterCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	user, err := h.svc.Register(ctx.Request.Context(), cmd)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.signIn(ctx, http.StatusCreated, user)
}

func (h *Handler) Logout(ctx *gin.Context) {
	h.setToken(ctx, "", -1)
	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *Handler) Me(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}

	user, err := h.svc.GetProfile(ctx.Request.Context(), actor)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": h.toUser(user)})
}

func (h *Handler) UpdateProfile(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}

	var cmd services.ProfileCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	user, err := h.svc.UpdateProfile(ctx.Request.Context(), actor, cmd)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": h.toUser(user)})
}

func (h *Handler) ChangePassword(ctx *gin.Context) {
	actor, ok := h.actor(ctx)
	if !ok {
		return
	}

	var cmd services.ChangePasswordCommand
	if !h.bind(ctx, &cmd) {
		return
	}

	h.noContent(ctx, h.svc.ChangePassword(ctx.Request.Context(), actor, cmd))
}
