package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbook/clinic-booking/internal/appointments"
)

type mockSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (m *mockSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func sampleAppointment() *appointments.Appointment {
	return &appointments.Appointment{
		ID:              "a1",
		Code:            "482913",
		PatientName:     "Ayse Yilmaz",
		PatientEmail:    "ayse@example.com",
		PatientPhone:    "+90 555 000 0000",
		AppointmentDate: "2025-06-02",
		AppointmentTime: "10:00",
		Status:          appointments.StatusCancelled,
		UpdatedAt:       time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestPublisherNotifySendsEnvelope(t *testing.T) {
	client := &mockSQS{}
	pub := NewSQSPublisher(client, "http://localhost:4566/000000000000/appointment-events", nil)
	sentAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return sentAt }

	require.NoError(t, pub.Notify(context.Background(), sampleAppointment(), appointments.EventCancelled))
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "http://localhost:4566/000000000000/appointment-events", aws.ToString(in.QueueUrl))
	assert.Equal(t, "appointment.cancelled.v1", aws.ToString(in.MessageAttributes["event_type"].StringValue))

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &env))
	assert.Equal(t, "appointment:a1", env.Aggregate)
	assert.Equal(t, "482913", env.CorrelationID)
	assert.Equal(t, sentAt.UnixMicro(), env.TimestampMicros)
	assert.NotContains(t, string(env.Payload), "ayse@example.com")

	var payload AppointmentChangedV1
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "cancelled", payload.Status)
}

func TestPublisherWrapsSendError(t *testing.T) {
	client := &mockSQS{err: errors.New("queue does not exist")}
	pub := NewSQSPublisher(client, "q", nil)

	err := pub.Notify(context.Background(), sampleAppointment(), appointments.EventCreated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue does not exist")
}

func TestPublisherRejectsNilAppointment(t *testing.T) {
	client := &mockSQS{}
	pub := NewSQSPublisher(client, "q", nil)

	require.Error(t, pub.Notify(context.Background(), nil, appointments.EventDeleted))
	assert.Empty(t, client.inputs)
}

func TestNewSQSPublisherRequiresQueue(t *testing.T) {
	assert.Panics(t, func() { NewSQSPublisher(&mockSQS{}, "", nil) })
	assert.Panics(t, func() { NewSQSPublisher(nil, "q", nil) })
}
