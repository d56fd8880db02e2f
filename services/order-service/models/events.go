package models

import "time"

const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderDelivered = "order.delivered"
)

// OrderEvent is published after every successful lifecycle transition.
type OrderEvent struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	TotalPrice Money     `json:"total_price"`
	ItemCount  int       `json:"item_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewOrderEvent(eventType string, o *Order, at time.Time) OrderEvent {
	count := 0
	for _, it := range o.OrderItems {
		count += it.Qty
	}
	return OrderEvent{
		Type:       eventType,
		OrderID:    o.ID,
		UserID:     o.User,
		TotalPrice: o.TotalPrice,
		ItemCount:  count,
		OccurredAt: at,
	}
}
