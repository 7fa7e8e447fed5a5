// Package metrics emits pipeline telemetry to AWS CloudWatch. Emission is
// best-effort: a failed PutMetricData is logged and ignored so observability
// problems never disturb the delivery pipeline.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"mailcourier/internal/types"
)

// Metric and dimension names.
const (
	MetricDeliveryAttempt = "DeliveryAttempt"
	MetricDeliveryLatency = "DeliveryLatency"
	MetricEventRejected   = "EventRejected"
	MetricResweepSelected = "ResweepSelected"

	DimResult = "Result"
	DimReason = "Reason"
)

// Delivery outcome values for the Result dimension.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Recorder abstracts pipeline telemetry so components can be tested without
// CloudWatch and so metrics can be disabled wholesale via NoopRecorder.
type Recorder interface {
	// RecordDelivery counts one delivery outcome (success/failed).
	RecordDelivery(ctx context.Context, result string)

	// RecordDeliveryLatency records the duration of one transport invocation.
	RecordDeliveryLatency(ctx context.Context, d time.Duration)

	// RecordEventRejected counts one inbound event dropped by validation.
	RecordEventRejected(ctx context.Context, reason string)

	// RecordResweepSelected records how many stale FAILED records one sweep selected.
	RecordResweepSelected(ctx context.Context, count int)
}

// CloudWatchAPI abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRecorder implements Recorder by emitting metrics to CloudWatch.
type CloudWatchRecorder struct {
	client    CloudWatchAPI
	namespace string
	logger    types.Logger
}

// Compile-time assertion that CloudWatchRecorder implements Recorder.
var _ Recorder = (*CloudWatchRecorder)(nil)

// NewCloudWatchRecorder creates a Recorder publishing to the given namespace.
func NewCloudWatchRecorder(client CloudWatchAPI, namespace string, logger types.Logger) *CloudWatchRecorder {
	return &CloudWatchRecorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordDelivery emits a DeliveryAttempt count with the Result dimension.
func (m *CloudWatchRecorder) RecordDelivery(ctx context.Context, result string) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricDeliveryAttempt),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimResult), Value: aws.String(result)},
		},
	})
}

// RecordDeliveryLatency emits the transport invocation duration in milliseconds.
func (m *CloudWatchRecorder) RecordDeliveryLatency(ctx context.Context, d time.Duration) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricDeliveryLatency),
		Value:      aws.Float64(float64(d.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
	})
}

// RecordEventRejected emits an EventRejected count with the rejection reason.
func (m *CloudWatchRecorder) RecordEventRejected(ctx context.Context, reason string) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricEventRejected),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimReason), Value: aws.String(reason)},
		},
	})
}

// RecordResweepSelected emits the size of one resweep selection.
func (m *CloudWatchRecorder) RecordResweepSelected(ctx context.Context, count int) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricResweepSelected),
		Value:      aws.Float64(float64(count)),
		Unit:       cwtypes.StandardUnitCount,
	})
}

func (m *CloudWatchRecorder) put(ctx context.Context, datum cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to emit metric",
			"metric", aws.ToString(datum.MetricName),
			"error", err.Error(),
		)
	}
}

// NoopRecorder implements Recorder by discarding all metrics. Used when
// metrics are disabled and in tests.
type NoopRecorder struct{}

var _ Recorder = NoopRecorder{}

func (NoopRecorder) RecordDelivery(context.Context, string)               {}
func (NoopRecorder) RecordDeliveryLatency(context.Context, time.Duration) {}
func (NoopRecorder) RecordEventRejected(context.Context, string)          {}
func (NoopRecorder) RecordResweepSelected(context.Context, int)           {}
