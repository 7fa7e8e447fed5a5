package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailcourier/internal/types"
)

// fakeCloudWatch captures PutMetricData inputs.
type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// testMetricsLogger satisfies types.Logger while discarding output.
type testMetricsLogger struct{}

func (testMetricsLogger) Info(msg string, args ...any)    {}
func (testMetricsLogger) Error(msg string, args ...any)   {}
func (testMetricsLogger) Warn(msg string, args ...any)    {}
func (l testMetricsLogger) With(args ...any) types.Logger { return l }

func newRecorderUnderTest(fake *fakeCloudWatch) *CloudWatchRecorder {
	return NewCloudWatchRecorder(fake, "MailCourier", testMetricsLogger{})
}

func TestCloudWatchRecorder_RecordDelivery(t *testing.T) {
	fake := &fakeCloudWatch{}
	rec := newRecorderUnderTest(fake)

	rec.RecordDelivery(context.Background(), ResultSuccess)

	require.Len(t, fake.inputs, 1)
	input := fake.inputs[0]
	assert.Equal(t, "MailCourier", aws.ToString(input.Namespace))
	require.Len(t, input.MetricData, 1)

	datum := input.MetricData[0]
	assert.Equal(t, MetricDeliveryAttempt, aws.ToString(datum.MetricName))
	assert.Equal(t, float64(1), aws.ToFloat64(datum.Value))
	assert.Equal(t, cwtypes.StandardUnitCount, datum.Unit)
	require.Len(t, datum.Dimensions, 1)
	assert.Equal(t, DimResult, aws.ToString(datum.Dimensions[0].Name))
	assert.Equal(t, ResultSuccess, aws.ToString(datum.Dimensions[0].Value))
}

func TestCloudWatchRecorder_RecordDeliveryLatency(t *testing.T) {
	fake := &fakeCloudWatch{}
	rec := newRecorderUnderTest(fake)

	rec.RecordDeliveryLatency(context.Background(), 1500*time.Millisecond)

	require.Len(t, fake.inputs, 1)
	datum := fake.inputs[0].MetricData[0]
	assert.Equal(t, MetricDeliveryLatency, aws.ToString(datum.MetricName))
	assert.Equal(t, float64(1500), aws.ToFloat64(datum.Value))
	assert.Equal(t, cwtypes.StandardUnitMilliseconds, datum.Unit)
}

func TestCloudWatchRecorder_RecordEventRejected(t *testing.T) {
	fake := &fakeCloudWatch{}
	rec := newRecorderUnderTest(fake)

	rec.RecordEventRejected(context.Background(), "validation_invalid_email")

	require.Len(t, fake.inputs, 1)
	datum := fake.inputs[0].MetricData[0]
	assert.Equal(t, MetricEventRejected, aws.ToString(datum.MetricName))
	require.Len(t, datum.Dimensions, 1)
	assert.Equal(t, DimReason, aws.ToString(datum.Dimensions[0].Name))
	assert.Equal(t, "validation_invalid_email", aws.ToString(datum.Dimensions[0].Value))
}

func TestCloudWatchRecorder_RecordResweepSelected(t *testing.T) {
	fake := &fakeCloudWatch{}
	rec := newRecorderUnderTest(fake)

	rec.RecordResweepSelected(context.Background(), 17)

	require.Len(t, fake.inputs, 1)
	datum := fake.inputs[0].MetricData[0]
	assert.Equal(t, MetricResweepSelected, aws.ToString(datum.MetricName))
	assert.Equal(t, float64(17), aws.ToFloat64(datum.Value))
}

// Emission failures must never propagate to the caller.
func TestCloudWatchRecorder_EmitFailureIsSwallowed(t *testing.T) {
	fake := &fakeCloudWatch{err: errors.New("throttled")}
	rec := newRecorderUnderTest(fake)

	assert.NotPanics(t, func() {
		rec.RecordDelivery(context.Background(), ResultFailed)
	})
	assert.Len(t, fake.inputs, 1)
}
