package dispatch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

const sqsRegion = "us-east-1"

// SQSBus sends dispatch messages to AWS SQS. In this deployment the relay
// worker runs as a separate process; in-flight requests are persisted by the
// queue and redelivered after a worker restart.
type SQSBus struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSBus constructs an SQS-backed bus.
func NewSQSBus(ctx context.Context) (*SQSBus, error) {
	queueURL := strings.TrimSpace(os.Getenv("ECOSENSE_SQS_QUEUE_URL"))
	if queueURL == "" {
		return nil, fmt.Errorf("ECOSENSE_SQS_QUEUE_URL is required")
	}

	region := strings.TrimSpace(os.Getenv("AWS_REGION"))
	if region == "" {
		region = sqsRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SQSBus{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

// Send delivers a message to the configured SQS queue.
func (b *SQSBus) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}

	_, err = b.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(b.queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}

var _ Bus = (*SQSBus)(nil)
