// Package events carries order change notifications to dashboards and other
// services. Delivery is best effort and eventually consistent; consumers must
// re-read the order before acting on it.
package events

import (
	"context"
	"log"
	"time"

	"order_engine/internal/models"
)

type EventType string

const (
	OrderCreated       EventType = "order.created"
	OrderStatusChanged EventType = "order.status"
	OrderRated         EventType = "order.rated"
)

type OrderEvent struct {
	Type       EventType          `json:"type"`
	OrderID    string             `json:"order_id"`
	Status     models.OrderStatus `json:"status"`
	Previous   models.OrderStatus `json:"previous,omitempty"`
	Total      string             `json:"total,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

type Subscriber interface {
	// Subscribe delivers events until the returned unsubscribe func is called
	// or ctx is done.
	Subscribe(ctx context.Context, onEvent func(OrderEvent), onError func(error)) (func(), error)
}

// MultiPublisher fans an event out to every publisher; one failing sink does
// not stop the others.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, event OrderEvent) error {
	var firstErr error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			log.Printf("Failed to publish %s for order %s: %v", event.Type, event.OrderID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
