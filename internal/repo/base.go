// Package repo holds the shared persistence plumbing domain repositories
// are built on.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base wraps the GORM connection every repository embeds. It keeps the
// context binding in one place so repositories stay declarative.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// With rebinds the base onto a transaction handle. Repositories use it to
// implement their WithTx methods.
func (b Base) With(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// DB returns the connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
