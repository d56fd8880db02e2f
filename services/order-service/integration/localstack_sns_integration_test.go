package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	awspkg "github.com/shopswift/storefront/pkg/aws"
	"github.com/shopswift/storefront/services/order-service/models"
	"github.com/shopswift/storefront/services/order-service/services"
)

// Runs only when RUN_LOCALSTACK_INTEGRATION=true and an endpoint is available
// at AWS_ENDPOINT.
func TestOrderEventPublish_LocalStack(t *testing.T) {
	if os.Getenv("RUN_LOCALSTACK_INTEGRATION") != "true" {
		t.Skip("skipping localstack integration test; set RUN_LOCALSTACK_INTEGRATION=true to run")
	}
	topic := os.Getenv("ORDER_SNS_TOPIC_ARN")
	require.NotEmpty(t, topic, "ORDER_SNS_TOPIC_ARN must be set for integration test")

	cfg, err := awspkg.LoadAWSConfig(context.Background())
	require.NoError(t, err)
	sns := awspkg.NewSNSClient(cfg)

	order := &models.Order{ID: "integration-order", User: "integration-user", TotalPrice: models.MustMoney("10.00")}
	evt := models.NewOrderEvent(models.EventOrderCreated, order, time.Now().UTC())

	require.NoError(t, sns.PublishWithAttributes(context.Background(), topic, []byte(`{"test":"ok"}`), map[string]string{"event_type": "test"}))

	n := services.NewEventNotifier(zaptest.NewLogger(t), services.EventSink{Name: "sns", Topic: topic, Publisher: sns})
	n.Notify(context.Background(), evt)
}
