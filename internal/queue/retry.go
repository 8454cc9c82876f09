// Package queue publishes per-user scan retries to SQS.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"fleetcare/internal/config"
	"fleetcare/internal/types"
)

// SQSSender is the slice of *sqs.Client the publisher needs.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// RetryPublisher enqueues ScanRetryMessages for the retry worker.
type RetryPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewRetryPublisher reads the queue URL from awsCfg. A nil logger uses
// slog.Default().
func NewRetryPublisher(client SQSSender, awsCfg config.AWSConfig, logger *slog.Logger) *RetryPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryPublisher{client: client, queueURL: awsCfg.ScanRetryQueueURL, logger: logger}
}

// PublishUserRetry sends msg to the retry queue. A missing TraceID is filled
// in so the retry can be correlated with the failing run.
func (p *RetryPublisher) PublishUserRetry(ctx context.Context, msg types.ScanRetryMessage) error {
	if msg.UserID == "" {
		return types.NewAppError(types.ErrCodeValidationMissingField, "retry message requires a user id", nil)
	}
	if msg.TraceID == "" {
		msg.TraceID = uuid.NewString()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal ScanRetryMessage: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"reason": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.Reason),
			},
			"attempt": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.Itoa(msg.Attempt)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("queue: failed to send ScanRetryMessage to %s: %w", p.queueURL, err)
	}

	p.logger.InfoContext(ctx, "scan retry enqueued",
		"user_id", msg.UserID,
		"day", msg.Day.Format("2006-01-02"),
		"attempt", msg.Attempt,
		"trace_id", msg.TraceID,
	)
	return nil
}
