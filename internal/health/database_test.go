package health

import (
	"context"
	"testing"

	"github.com/monocle-dev/tracker/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDatabase(t *testing.T) {
	db := testutil.NewDB(t)

	status := CheckDatabase(context.Background(), db, 0)
	assert.True(t, status.OK())
	assert.Equal(t, "ok", status.Status)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	status = CheckDatabase(context.Background(), db, 0)
	assert.False(t, status.OK())
	assert.Equal(t, "unreachable", status.Status)
	assert.Contains(t, status.Error, "failed to ping database")
}
