package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/repository"
	"github.com/monocle-dev/tracker/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(target string) *gin.Context {
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest("GET", target, nil)
	return ctx
}

func TestParseQuery(t *testing.T) {
	ctx := newContext("/api/issues?offset=20&limit=500&search=crash&filter[state]=3&filter[closed]=0&sort%5Bsubject%5D=desc&sort[id]=asc")

	q, err := ParseQuery(ctx)
	require.NoError(t, err)

	assert.Equal(t, 20, q.Offset)
	assert.Equal(t, types.MaxPageSize, q.Limit)
	assert.Equal(t, "crash", q.Search)
	assert.Equal(t, map[string]string{"state": "3", "closed": "0"}, q.Filters)
	assert.Equal(t, []repository.Sort{{Field: "subject", Desc: true}, {Field: "id"}}, q.Sorts)
}

func TestParseQuery_Defaults(t *testing.T) {
	q, err := ParseQuery(newContext("/api/issues"))
	require.NoError(t, err)
	assert.Zero(t, q.Offset)
	assert.Equal(t, types.DefaultPageSize, q.Limit)
	assert.Empty(t, q.Sorts)
}

func TestParseQuery_Invalid(t *testing.T) {
	for _, target := range []string{
		"/api/issues?offset=x",
		"/api/issues?limit=ten",
		"/api/issues?sort[id]=up",
	} {
		_, err := ParseQuery(newContext(target))
		assert.ErrorIs(t, err, apperrors.ErrValidation, target)
	}
}

func TestParamID(t *testing.T) {
	ctx := newContext("/")
	ctx.Params = gin.Params{{Key: "id", Value: "42"}, {Key: "bad", Value: "0"}}

	id, err := ParamID(ctx, "id")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	_, err = ParamID(ctx, "bad")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = ParamID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGetCurrentUser(t *testing.T) {
	ctx := newContext("/")
	_, err := GetCurrentUser(ctx)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	ctx.Set(types.ContextUserKey, &models.User{BaseModel: models.BaseModel{ID: 7}})
	id, err := GetCurrentUserID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)
}
