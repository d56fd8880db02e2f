package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/shopswift/storefront/services/order-service/models"
)

// Publisher delivers one message to a topic. Both the SNS client and the
// Kafka producer satisfy it.
type Publisher interface {
	Publish(ctx context.Context, topic string, message []byte) error
}

// attributePublisher is implemented by SNS so subscribers can filter on the
// event type.
type attributePublisher interface {
	PublishWithAttributes(ctx context.Context, topic string, message []byte, attrs map[string]string) error
}

// EventSink is a named publisher bound to a topic.
type EventSink struct {
	Name      string
	Topic     string
	Publisher Publisher
}

// EventNotifier fans lifecycle events out to every configured sink. Delivery
// is best effort: failures are logged and never surface to the caller.
type EventNotifier struct {
	sinks   []EventSink
	logger  *zap.Logger
	timeout time.Duration
}

func NewEventNotifier(logger *zap.Logger, sinks ...EventSink) *EventNotifier {
	n := &EventNotifier{logger: logger, timeout: 5 * time.Second}
	for _, s := range sinks {
		if s.Publisher != nil && s.Topic != "" {
			n.sinks = append(n.sinks, s)
		}
	}
	return n
}

// Sinks reports how many sinks will receive events.
func (n *EventNotifier) Sinks() int {
	if n == nil {
		return 0
	}
	return len(n.sinks)
}

func (n *EventNotifier) Notify(ctx context.Context, evt models.OrderEvent) {
	if n == nil || len(n.sinks) == 0 {
		return
	}

	body, err := json.Marshal(evt)
	if err != nil {
		n.logger.Error("failed to encode order event", zap.String("type", evt.Type), zap.Error(err))
		return
	}

	// The request may be cancelled right after the write; events still go out.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	for _, s := range n.sinks {
		if ap, ok := s.Publisher.(attributePublisher); ok {
			err = ap.PublishWithAttributes(ctx, s.Topic, body, map[string]string{"event_type": evt.Type})
		} else {
			err = s.Publisher.Publish(ctx, s.Topic, body)
		}
		if err != nil {
			n.logger.Warn("order event publish failed",
				zap.String("sink", s.Name),
				zap.String("topic", s.Topic),
				zap.String("type", evt.Type),
				zap.String("order_id", evt.OrderID),
				zap.Error(err),
			)
			continue
		}
		n.logger.Debug("order event published", zap.String("sink", s.Name), zap.String("type", evt.Type), zap.String("order_id", evt.OrderID))
	}
}
