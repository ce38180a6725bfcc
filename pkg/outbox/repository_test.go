package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec(`DELETE FROM outbox_events`).Error)
	return db
}

func insertOutboxRow(t *testing.T, db *gorm.DB, repo *Repository, aggregateID uuid.UUID) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return repo.Insert(tx, models.OutboxEvent{
			ID:            id,
			EventType:     enums.EventAssetSeized,
			AggregateType: enums.AggregateAsset,
			AggregateID:   aggregateID,
			Payload:       json.RawMessage(`{}`),
			CreatedAt:     time.Now(),
		})
	})
	require.NoError(t, err)
	return id
}

func TestRepositoryExistsTxTracksDelivery(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	aggregateID := uuid.New()

	rowID := insertOutboxRow(t, db, repo, aggregateID)

	err := db.Transaction(func(tx *gorm.DB) error {
		exists, err := repo.ExistsTx(tx, enums.EventAssetSeized, enums.AggregateAsset, aggregateID)
		require.NoError(t, err)
		assert.True(t, exists, "unpublished row should count")

		exists, err = repo.ExistsTx(tx, enums.EventAssetSeized, enums.AggregateAsset, uuid.New())
		require.NoError(t, err)
		assert.False(t, exists, "other aggregates should not count")
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkPublishedTx(tx, rowID)
	}))

	err = db.Transaction(func(tx *gorm.DB) error {
		exists, err := repo.ExistsTx(tx, enums.EventAssetSeized, enums.AggregateAsset, aggregateID)
		require.NoError(t, err)
		assert.False(t, exists, "published rows no longer block re-emission")
		return nil
	})
	require.NoError(t, err)
}

func TestRepositoryMarkFailedTxRecordsAttempts(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	rowID := insertOutboxRow(t, db, repo, uuid.New())

	cause := errors.New("publish timed out")
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkFailedTx(tx, rowID, cause)
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkFailedTx(tx, rowID, cause)
	}))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", rowID).Error)
	assert.Equal(t, 2, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "publish timed out", *row.LastError)
	assert.Nil(t, row.PublishedAt)
}

func TestRepositoryMarkTerminalTxPinsAttemptCount(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	rowID := insertOutboxRow(t, db, repo, uuid.New())

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkTerminalTx(tx, rowID, errors.New("topic gone"), 8)
	}))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", rowID).Error)
	assert.Equal(t, 8, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "topic gone", *row.LastError)
	assert.Nil(t, row.PublishedAt, "terminal rows stay unpublished")
}

func TestServiceEmitIfNotExistsSuppressesDuplicates(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	service := NewService(repo, nil)
	aggregateID := uuid.New()

	event := DomainEvent{
		EventType:     enums.EventAssetSeized,
		AggregateType: enums.AggregateAsset,
		AggregateID:   aggregateID,
		Data:          map[string]string{"reason": "storage delinquency"},
		Version:       1,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := service.EmitIfNotExists(context.Background(), tx, event); err != nil {
			return err
		}
		return service.EmitIfNotExists(context.Background(), tx, event)
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ?", aggregateID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count, "duplicate emission should be a no-op")
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	published := insertOutboxRow(t, db, repo, uuid.New())
	exhausted := insertOutboxRow(t, db, repo, uuid.New())
	pending := insertOutboxRow(t, db, repo, uuid.New())

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("id = ?", published).
		Updates(map[string]any{"published_at": old, "created_at": old}).Error)
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("id = ?", exhausted).
		Updates(map[string]any{"attempt_count": 8, "created_at": old}).Error)

	deleted, err := repo.DeletePublishedBefore(context.Background(), nil, time.Now().Add(-24*time.Hour), 8)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, pending, remaining[0].ID)
}
