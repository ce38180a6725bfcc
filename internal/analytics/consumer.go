package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/vaulted-markets/vaulted-backend/pkg/enums"
	"github.com/vaulted-markets/vaulted-backend/pkg/logger"
)

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Consumer streams settled market activity into BigQuery.
type Consumer struct {
	client      tableInserter
	table       string
	logg        *logger.Logger
	eventFilter map[enums.OutboxEventType]struct{}
}

// NewConsumer builds the market-events consumer.
func NewConsumer(client tableInserter, table string, logg *logger.Logger) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		client: client,
		table:  strings.TrimSpace(table),
		logg:   logg,
		eventFilter: map[enums.OutboxEventType]struct{}{
			enums.EventAssetMinted:        {},
			enums.EventAssetSeized:        {},
			enums.EventTradeCompleted:     {},
			enums.EventMarketplaceFeePaid: {},
			enums.EventStorageFeePaid:     {},
			enums.EventRentDeposited:      {},
			enums.EventRentClaimed:        {},
			enums.EventDistributionPaused: {},
		},
	}, nil
}

// Handle ingests the envelope into BigQuery if the event is tracked.
func (c *Consumer) Handle(ctx context.Context, envelope Envelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": envelope.EventType,
	})

	if _, ok := c.eventFilter[envelope.EventType]; !ok {
		c.logg.Info(logCtx, "event not handled by analytics consumer")
		return nil
	}

	row, err := buildRow(envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to build market event row", err)
		return err
	}

	if err := c.client.InsertRows(ctx, c.table, []any{row}); err != nil {
		c.logg.Error(logCtx, "failed to insert market event row", err)
		return err
	}

	c.logg.Info(logCtx, "market event ingested")
	return nil
}

type marketEventRow struct {
	EventID       string    `bigquery:"event_id"`
	EventType     string    `bigquery:"event_type"`
	AggregateType string    `bigquery:"aggregate_type"`
	AggregateID   string    `bigquery:"aggregate_id"`
	OccurredAt    time.Time `bigquery:"occurred_at"`

	AssetID        *string `bigquery:"asset_id"`
	ListingID      *string `bigquery:"listing_id"`
	CategoryID     *string `bigquery:"category_id"`
	BuyerAccountID *string `bigquery:"buyer_account_id"`
	OwnerAccountID *string `bigquery:"owner_account_id"`
	Currency       *string `bigquery:"currency"`
	AmountMicros   *int64  `bigquery:"amount_micros"`

	Payload cbigquery.NullJSON `bigquery:"payload"`
}

func buildRow(envelope Envelope) (*marketEventRow, error) {
	payload := map[string]any{}
	if len(envelope.Payload) > 0 {
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		if payload == nil {
			payload = map[string]any{}
		}
	}

	payloadJSON := cbigquery.NullJSON{}
	if len(envelope.Payload) > 0 {
		payloadJSON.Valid = true
		payloadJSON.JSONVal = string(envelope.Payload)
	}

	return &marketEventRow{
		EventID:        envelope.EventID,
		EventType:      string(envelope.EventType),
		AggregateType:  string(envelope.AggregateType),
		AggregateID:    envelope.AggregateID,
		OccurredAt:     envelope.OccurredAt,
		AssetID:        stringValue(payload, "asset_id"),
		ListingID:      stringValue(payload, "listing_id"),
		CategoryID:     stringValue(payload, "category_id"),
		BuyerAccountID: stringValue(payload, "buyer_account_id"),
		OwnerAccountID: stringValue(payload, "owner_account_id"),
		Currency:       stringValue(payload, "currency"),
		AmountMicros:   amountValue(payload),
		Payload:        payloadJSON,
	}, nil
}

// amountValue resolves the single money column from whichever field the
// event type carries.
func amountValue(payload map[string]any) *int64 {
	for _, key := range []string{"amount_micros", "price_micros", "fee_micros", "paid_to_owner_micros"} {
		if raw, ok := payload[key]; ok {
			if num, ok := raw.(float64); ok {
				value := int64(num)
				return &value
			}
		}
	}
	return nil
}

func stringValue(payload map[string]any, key string) *string {
	if payload == nil {
		return nil
	}
	if raw, ok := payload[key]; ok {
		if str, ok := raw.(string); ok {
			trimmed := strings.TrimSpace(str)
			if trimmed != "" {
				return &trimmed
			}
		}
	}
	return nil
}
