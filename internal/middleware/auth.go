package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/auth"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/types"
)

// TokenCookie is the cookie login sets for browser clients.
const TokenCookie = "token"

// ActorLoader fetches the authenticated user with the groups voters need.
type ActorLoader interface {
	LoadActor(ctx context.Context, id uint) (*models.User, error)
}

func abort(ctx *gin.Context, message string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message, "code": apperrors.CodeUnauthorized})
}

// Auth accepts a bearer token or the token cookie and stores the user in the
// request context.
func Auth(tokens *auth.Tokens, users ActorLoader) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, ok := tokenFrom(ctx)
		if !ok {
			abort(ctx, "Authorization header format must be Bearer {token}")
			return
		}
		if tokenString == "" {
			abort(ctx, "Authorization token is required")
			return
		}

		userID, err := tokens.Verify(tokenString)
		if err != nil {
			abort(ctx, "Invalid or expired token")
			return
		}

		user, err := users.LoadActor(ctx.Request.Context(), userID)
		if err != nil {
			abort(ctx, "User not found")
			return
		}
		if user.Disabled {
			abort(ctx, "Account is disabled")
			return
		}

		ctx.Set(types.ContextUserKey, user)
		ctx.Next()
	}
}

// tokenFrom reports false for a malformed Authorization header.
func tokenFrom(ctx *gin.Context) (string, bool) {
	if header := ctx.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}

	cookie, err := ctx.Cookie(TokenCookie)
	if err != nil {
		return "", true
	}
	return cookie, true
}
