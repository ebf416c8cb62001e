package database

import (
	"context"
	"testing"
	"time"

	"consultbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncQueueCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.SyncTask{
		TaskType:  models.SyncTaskUpsert,
		BookingID: "b-100",
		Payload:   `{"id":"b-100"}`,
	}
	require.NoError(t, db.CreateSyncTask(ctx, task))
	assert.NotZero(t, task.ID)
	assert.Equal(t, models.SyncStatusPending, task.Status)

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "b-100", tasks[0].BookingID)

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, tasks[0].ID, models.SyncStatusCompleted, "", nil))
	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	t.Run("RetryIsDeferred", func(t *testing.T) {
		retry := &models.SyncTask{TaskType: models.SyncTaskUpdateStatus, BookingID: "b-101", Payload: "{}"}
		require.NoError(t, db.CreateSyncTask(ctx, retry))

		next := time.Now().UTC().Add(time.Hour)
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, retry.ID, models.SyncStatusRetry, "temporary error", &next))

		pending, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)

		past := time.Now().UTC().Add(-time.Minute)
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, retry.ID, models.SyncStatusRetry, "temporary error", &past))
		pending, err = db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, 2, pending[0].RetryCount)
		require.NotNil(t, pending[0].LastError)
		assert.Equal(t, "temporary error", *pending[0].LastError)
	})

	t.Run("DeadLetter", func(t *testing.T) {
		failed := &models.SyncTask{TaskType: models.SyncTaskUpsert, BookingID: "b-102", Payload: "{}"}
		require.NoError(t, db.CreateSyncTask(ctx, failed))
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, failed.ID, models.SyncStatusFailed, "gave up", nil))

		dead, err := db.GetFailedSyncTasks(ctx)
		require.NoError(t, err)
		require.Len(t, dead, 1)
		assert.Equal(t, "b-102", dead[0].BookingID)
		assert.NotNil(t, dead[0].ProcessedAt)
	})
}
