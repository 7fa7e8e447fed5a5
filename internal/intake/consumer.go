package intake

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"mailcourier/internal/metrics"
	"mailcourier/internal/types"
)

// SQSReceiver abstracts the SQS receive/delete operations for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSReceiver interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// EventHandler is the downstream consumer of validated order events,
// implemented by dispatch.Coordinator.
type EventHandler interface {
	ProcessOrderEvent(ctx context.Context, event *types.OrderEvent) error
}

const (
	receiveBatchSize      = 10
	receiveWaitSeconds    = 20
	visibilityTimeoutSecs = 60
)

// Consumer long-polls the order-events queue and feeds each message through
// validation and the dispatch coordinator.
//
// Acknowledgment policy: every received message is deleted exactly once,
// whatever the outcome. Invalid events are rejected (logged and counted) and
// deleted; coordinator errors are logged and the message is still deleted,
// because delivery reliability is owned by the persisted record and the
// resweeper, not by queue redelivery. Redelivering a poison message would
// only duplicate work the idempotency key already absorbs.
type Consumer struct {
	client    SQSReceiver
	queueURL  string
	validator *EventValidator
	handler   EventHandler
	metrics   metrics.Recorder
	logger    types.Logger
}

// ConsumerConfig holds the dependencies needed to create a Consumer.
type ConsumerConfig struct {
	Client    SQSReceiver
	QueueURL  string
	Validator *EventValidator
	Handler   EventHandler
	Metrics   metrics.Recorder
	Logger    types.Logger
}

// NewConsumer creates a Consumer.
func NewConsumer(cfg ConsumerConfig) *Consumer {
	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Consumer{
		client:    cfg.Client,
		queueURL:  cfg.QueueURL,
		validator: cfg.Validator,
		handler:   cfg.Handler,
		metrics:   rec,
		logger:    cfg.Logger,
	}
}

// Run long-polls the queue until ctx is canceled. Receive errors are logged
// and polling continues; only context cancellation ends the loop.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("order event consumer started", "queue_url", c.queueURL)

	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info("order event consumer stopped")
			return err
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: receiveBatchSize,
			WaitTimeSeconds:     receiveWaitSeconds,
			VisibilityTimeout:   visibilityTimeoutSecs,
		})
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("order event consumer stopped")
				return ctx.Err()
			}
			c.logger.Error("failed to receive from order events queue", "error", err.Error())
			continue
		}

		for _, msg := range out.Messages {
			c.handleMessage(ctx, msg)
		}
	}
}

// handleMessage processes one queue message and then deletes it. The delete
// happens on every path; see the Consumer doc comment for the rationale.
func (c *Consumer) handleMessage(ctx context.Context, msg sqsTypes.Message) {
	defer c.deleteMessage(ctx, msg)

	event, err := c.validator.Parse([]byte(aws.ToString(msg.Body)))
	if err != nil {
		c.reject(ctx, msg, err)
		return
	}

	if err := c.handler.ProcessOrderEvent(ctx, event); err != nil {
		c.logger.Error("failed to process order event",
			"order_id", event.OrderID,
			"order_status", string(event.OrderStatus),
			"error", err.Error(),
		)
	}
}

// reject logs and counts a message that failed validation.
func (c *Consumer) reject(ctx context.Context, msg sqsTypes.Message, err error) {
	reason := string(types.ErrCodeInternalUnexpected)
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		reason = string(appErr.Code)
	}

	c.metrics.RecordEventRejected(ctx, reason)
	c.logger.Warn("rejected invalid order event",
		"message_id", aws.ToString(msg.MessageId),
		"reason", reason,
		"error", err.Error(),
	)
}

func (c *Consumer) deleteMessage(ctx context.Context, msg sqsTypes.Message) {
	// Use a context detached from cancellation so shutdown does not strand
	// an already-handled message back on the queue.
	_, err := c.client.DeleteMessage(context.WithoutCancel(ctx), &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		c.logger.Error("failed to delete order event message",
			"message_id", aws.ToString(msg.MessageId),
			"error", err.Error(),
		)
	}
}
