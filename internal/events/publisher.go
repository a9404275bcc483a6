package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/clinicbook/clinic-booking/internal/appointments"
	"github.com/clinicbook/clinic-booking/pkg/logging"
)

// SQSAPI is the subset of the SQS client used by the publisher.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends appointment change envelopes to a single queue.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
	logger   *logging.Logger
	now      func() time.Time
}

// NewSQSPublisher creates a publisher around the provided SQS client.
func NewSQSPublisher(client SQSAPI, queueURL string, logger *logging.Logger) *SQSPublisher {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("events: SQS queueURL cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SQSPublisher{client: client, queueURL: queueURL, logger: logger, now: time.Now}
}

// Publish sends env as the message body, tagged with its event type.
func (p *SQSPublisher) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(env.EventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("events: failed to send SQS message: %w", err)
	}
	p.logger.Debug("event published", "event_id", env.EventID, "event_type", env.EventType)
	return nil
}

// Notify implements appointments.Notifier so the publisher can be plugged in as a feed.
func (p *SQSPublisher) Notify(ctx context.Context, appt *appointments.Appointment, event appointments.Event) error {
	env, err := AppointmentEnvelope(appt, event, p.now())
	if err != nil {
		return err
	}
	return p.Publish(ctx, env)
}
