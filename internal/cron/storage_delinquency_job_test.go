package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
)

func TestStorageDelinquencyJobRunsSweep(t *testing.T) {
	sweeper := &fakeDelinquencySweeper{seized: []uuid.UUID{uuid.New(), uuid.New()}}
	job := newStorageDelinquencyJob(t, sweeper)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.called != 1 {
		t.Fatalf("expected sweep called once, got %d", sweeper.called)
	}
}

func TestStorageDelinquencyJobReportsPartialFailures(t *testing.T) {
	sweeper := &fakeDelinquencySweeper{
		seized: []uuid.UUID{uuid.New()},
		err:    errors.New("seize asset: db down"),
	}
	job := newStorageDelinquencyJob(t, sweeper)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error when sweep reports failures")
	}
}

func newStorageDelinquencyJob(t *testing.T, sweeper *fakeDelinquencySweeper) *storageDelinquencyJob {
	t.Helper()
	jobIface, err := NewStorageDelinquencyJob(StorageDelinquencyJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewStorageDelinquencyJob: %v", err)
	}
	job, ok := jobIface.(*storageDelinquencyJob)
	if !ok {
		t.Fatalf("expected storageDelinquencyJob, got %T", jobIface)
	}
	return job
}

type fakeDelinquencySweeper struct {
	seized []uuid.UUID
	called int
	err    error
}

func (f *fakeDelinquencySweeper) SweepDelinquent(ctx context.Context) ([]uuid.UUID, error) {
	f.called++
	return f.seized, f.err
}
