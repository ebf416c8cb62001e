package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"consultbook/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	db := setupTestDB(t)
	seedBooking(t, db, "cust-1")

	storage := filepath.Join(t.TempDir(), "backups")
	logger := zerolog.Nop()
	s := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: storage, RetentionDays: 1}, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(context.Background())
		require.NoError(t, err)

		restored, err := NewDB(path, &logger)
		require.NoError(t, err)
		defer restored.Close()

		list, err := restored.ListBookingsByCustomer(context.Background(), "cust-1")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		old := filepath.Join(storage, backupPrefix+"19990101_000000.db")
		require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))
		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(old, oldTime, oldTime))

		unrelated := filepath.Join(storage, "notes.txt")
		require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))
		require.NoError(t, os.Chtimes(unrelated, oldTime, oldTime))

		assert.Equal(t, 1, s.CleanupOldBackups())
		_, err := os.Stat(old)
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(unrelated)
		assert.NoError(t, err)
	})
}

func TestBackupService_Disabled(t *testing.T) {
	db := setupTestDB(t)
	logger := zerolog.Nop()
	s := NewBackupService(db, config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
}

func TestBackupService_InMemory(t *testing.T) {
	db, err := NewDB(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	logger := zerolog.Nop()
	s := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: t.TempDir()}, &logger)
	_, err = s.PerformBackup(context.Background())
	assert.Error(t, err)
}
