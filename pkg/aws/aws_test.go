package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{}, f.err
}

func TestSNSClient_PublishWithAttributes(t *testing.T) {
	fake := &fakeSNS{}
	c := &SNSClient{client: fake}

	err := c.PublishWithAttributes(context.Background(), "arn:aws:sns:us-east-1:000000000000:orders", []byte(`{"a":1}`), map[string]string{"event_type": "order.paid"})
	require.NoError(t, err)
	require.Len(t, fake.inputs, 1)
	assert.Equal(t, `{"a":1}`, sdkaws.ToString(fake.inputs[0].Message))
	assert.Equal(t, "order.paid", sdkaws.ToString(fake.inputs[0].MessageAttributes["event_type"].StringValue))
}

func TestSNSClient_RejectsEmptyTopic(t *testing.T) {
	c := &SNSClient{client: &fakeSNS{}}
	assert.Error(t, c.Publish(context.Background(), "", []byte("x")))
}

func TestSNSClient_WrapsError(t *testing.T) {
	c := &SNSClient{client: &fakeSNS{err: errors.New("throttled")}}
	err := c.Publish(context.Background(), "arn", []byte("x"))
	assert.ErrorContains(t, err, "throttled")
}

type fakeSecrets struct {
	calls  int
	secret *string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, _ *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	return &secretsmanager.GetSecretValueOutput{SecretString: f.secret}, nil
}

func TestSecretsClient_CachesAndDecodes(t *testing.T) {
	fake := &fakeSecrets{secret: sdkaws.String(`{"JWT_SECRET":"s3cret"}`)}
	c := &SecretsClient{client: fake, cache: map[string]string{}}

	m, err := c.GetSecretMap(context.Background(), "storefront/order-service")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", m["JWT_SECRET"])

	_, err = c.GetSecret(context.Background(), "storefront/order-service")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
}

func TestSecretsClient_NoString(t *testing.T) {
	c := &SecretsClient{client: &fakeSecrets{}, cache: map[string]string{}}
	_, err := c.GetSecret(context.Background(), "missing")
	assert.Error(t, err)
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestMetricsClient_DisabledIsNoop(t *testing.T) {
	var nilClient *MetricsClient
	assert.False(t, nilClient.IsEnabled())
	assert.NoError(t, (&MetricsClient{}).RecordCount(context.Background(), MetricOrdersCreated, nil))
}

func TestMetricsClient_RecordLatency(t *testing.T) {
	fake := &fakeCloudWatch{}
	m := &MetricsClient{client: fake, namespace: "Test", enabled: true}

	require.NoError(t, m.RecordLatency(context.Background(), MetricHTTPLatency, 1500*time.Millisecond, map[string]string{"Service": "order-service"}))
	require.Len(t, fake.inputs, 1)
	datum := fake.inputs[0].MetricData[0]
	assert.Equal(t, MetricHTTPLatency, sdkaws.ToString(datum.MetricName))
	assert.Equal(t, 1500.0, sdkaws.ToFloat64(datum.Value))
	assert.Len(t, datum.Dimensions, 1)
}

type fakeLogs struct {
	cloudWatchLogsAPI
	events int
}

func (f *fakeLogs) PutLogEvents(_ context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.events += len(in.LogEvents)
	return &cloudwatchlogs.PutLogEventsOutput{NextSequenceToken: sdkaws.String("next")}, nil
}

func TestCloudWatchLogsClient_Write(t *testing.T) {
	fake := &fakeLogs{}
	c := &CloudWatchLogsClient{client: fake, logGroupName: "g", logStreamName: "s", enabled: true}

	n, err := c.Write([]byte("line"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1, fake.events)
	assert.Equal(t, "next", sdkaws.ToString(c.sequenceToken))
}

func TestCloudWatchLogsClient_DisabledDiscards(t *testing.T) {
	n, err := (&CloudWatchLogsClient{}).Write([]byte("line"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
