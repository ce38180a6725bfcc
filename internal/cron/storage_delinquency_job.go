package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StorageDelinquencyJobParams configure the custody sweep.
type StorageDelinquencyJobParams struct {
	Logger  *logger.Logger
	Sweeper delinquencySweeper
}

type delinquencySweeper interface {
	SweepDelinquent(ctx context.Context) ([]uuid.UUID, error)
}

// NewStorageDelinquencyJob builds the cron job that seizes assets
// whose storage fee coverage lapsed past the grace period.
func NewStorageDelinquencyJob(params StorageDelinquencyJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("storage fee service required")
	}
	return &storageDelinquencyJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		now:     time.Now,
	}, nil
}

type storageDelinquencyJob struct {
	logg    *logger.Logger
	sweeper delinquencySweeper
	now     func() time.Time
}

func (j *storageDelinquencyJob) Name() string { return "storage-delinquency" }

func (j *storageDelinquencyJob) Run(ctx context.Context) error {
	start := j.now().UTC()
	seized, err := j.sweeper.SweepDelinquent(ctx)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"seized_count": len(seized),
		"duration_ms":  time.Since(start).Milliseconds(),
	})
	if err != nil {
		// Partial progress still counts; the failures come back
		// aggregated so the next cycle retries what is left.
		j.logg.Error(logCtx, "delinquency sweep finished with failures", err)
		return fmt.Errorf("storage delinquency sweep: %w", err)
	}
	j.logg.Info(logCtx, "delinquency sweep complete")
	return nil
}
