package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sale event types.
const (
	SaleCreated = "sale.created"
	SaleVoided  = "sale.voided"
)

// SaleEvent is published on SalesChannel.
type SaleEvent struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	SaleID        int             `json:"sale_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Total         decimal.Decimal `json:"total"`
	ActorID       int             `json:"actor_id"`
	At            time.Time       `json:"at"`
}

// PublishSale sends ev to SalesChannel. Failures are logged, never returned.
func (c *Cache) PublishSale(ctx context.Context, ev SaleEvent) {
	if c == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		c.log.Warn("failed to encode sale event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	if err := c.client.Publish(ctx, SalesChannel, b).Err(); err != nil {
		c.log.Warn("failed to publish sale event",
			zap.String("type", ev.Type),
			zap.String("invoice", ev.InvoiceNumber),
			zap.Error(err))
	}
}
