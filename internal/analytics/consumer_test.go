package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
)

type fakeInserter struct {
	table string
	rows  []any
	err   error
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	if f.err != nil {
		return f.err
	}
	f.table = table
	f.rows = append(f.rows, rows...)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard})
}

func TestConsumerHandleInsertsTradeRow(t *testing.T) {
	inserter := &fakeInserter{}
	consumer, err := NewConsumer(inserter, "market_events", testLogger())
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	assetID := uuid.New()
	listingID := uuid.New()
	payload, _ := json.Marshal(map[string]any{
		"asset_id":         assetID.String(),
		"listing_id":       listingID.String(),
		"buyer_account_id": uuid.NewString(),
		"currency":         "USD",
		"price_micros":     2_100_000_000,
	})
	envelope := Envelope{
		EventID:       uuid.NewString(),
		EventType:     enums.EventTradeCompleted,
		AggregateType: enums.AggregateListing,
		AggregateID:   listingID.String(),
		OccurredAt:    time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		Payload:       payload,
	}

	if err := consumer.Handle(context.Background(), envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if inserter.table != "market_events" {
		t.Fatalf("unexpected table %q", inserter.table)
	}
	if len(inserter.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(inserter.rows))
	}

	row, ok := inserter.rows[0].(*marketEventRow)
	if !ok {
		t.Fatalf("unexpected row type %T", inserter.rows[0])
	}
	if row.EventType != string(enums.EventTradeCompleted) {
		t.Fatalf("unexpected event type %q", row.EventType)
	}
	if row.AssetID == nil || *row.AssetID != assetID.String() {
		t.Fatalf("asset id not extracted")
	}
	if row.ListingID == nil || *row.ListingID != listingID.String() {
		t.Fatalf("listing id not extracted")
	}
	if row.Currency == nil || *row.Currency != "USD" {
		t.Fatalf("currency not extracted")
	}
	if row.AmountMicros == nil || *row.AmountMicros != 2_100_000_000 {
		t.Fatalf("amount not extracted")
	}
	if !row.Payload.Valid {
		t.Fatalf("expected raw payload to be kept")
	}
}

func TestConsumerHandleSkipsUntrackedEvents(t *testing.T) {
	inserter := &fakeInserter{}
	consumer, err := NewConsumer(inserter, "market_events", testLogger())
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	envelope := Envelope{
		EventID:       uuid.NewString(),
		EventType:     enums.EventAccountRegistered,
		AggregateType: enums.AggregateAccount,
		AggregateID:   uuid.NewString(),
		OccurredAt:    time.Now().UTC(),
	}

	if err := consumer.Handle(context.Background(), envelope); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(inserter.rows) != 0 {
		t.Fatalf("expected no rows for untracked event, got %d", len(inserter.rows))
	}
}

func TestConsumerHandlePropagatesInsertError(t *testing.T) {
	inserter := &fakeInserter{err: errors.New("stream closed")}
	consumer, err := NewConsumer(inserter, "market_events", testLogger())
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	payload, _ := json.Marshal(map[string]any{"asset_id": uuid.NewString(), "amount_micros": 1})
	envelope := Envelope{
		EventID:       uuid.NewString(),
		EventType:     enums.EventRentClaimed,
		AggregateType: enums.AggregateRentRecord,
		AggregateID:   uuid.NewString(),
		OccurredAt:    time.Now().UTC(),
		Payload:       payload,
	}

	if err := consumer.Handle(context.Background(), envelope); err == nil {
		t.Fatalf("expected insert error to propagate")
	}
}

func TestAmountValuePrefersAmountMicros(t *testing.T) {
	payload := map[string]any{
		"amount_micros": float64(500),
		"fee_micros":    float64(25),
	}
	got := amountValue(payload)
	if got == nil || *got != 500 {
		t.Fatalf("expected amount_micros to win, got %v", got)
	}

	feeOnly := map[string]any{"fee_micros": float64(25)}
	got = amountValue(feeOnly)
	if got == nil || *got != 25 {
		t.Fatalf("expected fee_micros fallback, got %v", got)
	}

	if amountValue(map[string]any{}) != nil {
		t.Fatalf("expected nil for missing amounts")
	}
}
