package outbox

import (
	"errors"

	"github.com/vaulted-markets/vaulted-backend/pkg/db/models"
	"gorm.io/gorm"
)

const maxDLQErrorLen = 1024

// DLQRepository stores events the publisher gave up on. Rows are
// insert-only from the application side; inspection and replay happen
// through SQL tooling.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx records a dead event in the same transaction that marks the
// source row terminal. Error text is truncated so oversized driver
// messages cannot blow the column.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := truncateDLQError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}


func truncateDLQError(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	return message[:maxDLQErrorLen]
}
