package utils

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/types"
)

func GetCurrentUser(ctx *gin.Context) (*models.User, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "User not authenticated")
	}

	authenticatedUser, ok := user.(*models.User)

	if !ok {
		return nil, fmt.Errorf("invalid user type in context: %T", user)
	}

	return authenticatedUser, nil
}

func GetCurrentUserID(ctx *gin.Context) (uint, error) {
	user, err := GetCurrentUser(ctx)

	if err != nil {
		return 0, err
	}

	return user.ID, nil
}

// ParamID parses a positive numeric path parameter.
func ParamID(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

// ParseQuery reads the collection parameters: offset, limit, search,
// filter[name]=value and sort[name]=asc|desc.
func ParseQuery(ctx *gin.Context) (repository.Query, error) {
	var q repository.Query

	if raw := ctx.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, apperrors.Validation("invalid offset %q", raw)
		}
		q.Offset = n
	}
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, apperrors.Validation("invalid limit %q", raw)
		}
		q.Limit = n
	}
	q.Search = ctx.Query("search")

	if filters, ok := ctx.GetQueryMap("filter"); ok {
		q.Filters = filters
	}

	// Sort keys keep the order they appear in the query string.
	for _, pair := range strings.Split(ctx.Request.URL.RawQuery, "&") {
		key, value, _ := strings.Cut(pair, "=")
		field, ok := sortField(key)
		if !ok {
			continue
		}
		switch strings.ToLower(value) {
		case "", "asc":
			q.Sorts = append(q.Sorts, repository.Sort{Field: field})
		case "desc":
			q.Sorts = append(q.Sorts, repository.Sort{Field: field, Desc: true})
		default:
			return q, apperrors.Validation("invalid sort direction %q", value)
		}
	}

	return q.Normalize(), nil
}

func sortField(key string) (string, bool) {
	if unescaped, err := url.QueryUnescape(key); err == nil {
		key = unescaped
	}
	if !strings.HasPrefix(key, "sort[") || !strings.HasSuffix(key, "]") {
		return "", false
	}
	return key[len("sort[") : len(key)-1], true
}
