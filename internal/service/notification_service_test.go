package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/elective-portal-api/internal/models"
	appErrors "github.com/noah-isme/elective-portal-api/pkg/errors"
	"github.com/noah-isme/elective-portal-api/pkg/jobs"
	"github.com/noah-isme/elective-portal-api/pkg/mail"
)

type recipientsStub struct {
	filter models.RecipientFilter
	count  int
}

func (r *recipientsStub) ListRecipients(ctx context.Context, filter models.RecipientFilter) ([]models.Recipient, error) {
	r.filter = filter
	out := make([]models.Recipient, r.count)
	for i := range out {
		out[i] = models.Recipient{StudentID: fmt.Sprintf("stu-%d", i), FullName: fmt.Sprintf("Student %d", i), Email: fmt.Sprintf("s%d@example.edu", i)}
	}
	return out, nil
}

type capturingSender struct {
	mu       sync.Mutex
	messages []mail.Message
	fail     error
	sent     chan struct{}
}

func (c *capturingSender) Send(ctx context.Context, msg mail.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent != nil {
		defer func() { c.sent <- struct{}{} }()
	}
	if c.fail != nil {
		return c.fail
	}
	c.messages = append(c.messages, msg)
	return nil
}

func TestBroadcastBatchesRecipients(t *testing.T) {
	recipients := &recipientsStub{count: 5}
	sender := &capturingSender{}
	svc := NewNotificationService(recipients, sender, nil, NotificationConfig{BatchSize: 2, Synchronous: true}, nil, nil)

	result, err := svc.Broadcast(context.Background(), adminActor(), models.NotificationRequest{
		Subject:    "Seat confirmed",
		Body:       "Your elective starts Monday.",
		Department: "CS",
		Semester:   5,
	})

	require.NoError(t, err)
	assert.Equal(t, 5, result.Recipients)
	assert.Equal(t, 3, result.Batches)
	require.Len(t, sender.messages, 3)
	assert.Len(t, sender.messages[0].To, 2)
	assert.Len(t, sender.messages[2].To, 1)
	assert.Equal(t, "s4@example.edu", sender.messages[2].To[0].Email)
	assert.Equal(t, "Seat confirmed", sender.messages[0].Subject)
	assert.Equal(t, "CS", recipients.filter.Department)
	assert.Equal(t, 5, recipients.filter.Semester)
}

func TestBroadcastThroughQueue(t *testing.T) {
	sender := &capturingSender{sent: make(chan struct{}, 2)}
	metrics := NewMetricsService()
	svc := NewNotificationService(&recipientsStub{count: 3}, sender, metrics, NotificationConfig{
		BatchSize: 2,
		Queue:     jobs.QueueConfig{Workers: 1},
	}, nil, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	result, err := svc.Broadcast(context.Background(), adminActor(), models.NotificationRequest{
		Subject:    "Reminder",
		Body:       "Selections close Friday.",
		ElectiveID: "3f9a2b1c-5d6e-4f70-8a9b-0c1d2e3f4a5b",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Batches)

	for i := 0; i < 2; i++ {
		select {
		case <-sender.sent:
		case <-time.After(time.Second):
			t.Fatal("batch not delivered")
		}
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Len(t, sender.messages, 2)
}

func TestBroadcastRequiresAudience(t *testing.T) {
	svc := NewNotificationService(&recipientsStub{}, &capturingSender{}, nil, NotificationConfig{Synchronous: true}, nil, nil)

	_, err := svc.Broadcast(context.Background(), adminActor(), models.NotificationRequest{Subject: "x", Body: "y"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Broadcast(context.Background(), adminActor(), models.NotificationRequest{Body: "y", Department: "CS"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestBroadcastWithoutRecipients(t *testing.T) {
	sender := &capturingSender{}
	svc := NewNotificationService(&recipientsStub{}, sender, nil, NotificationConfig{Synchronous: true}, nil, nil)

	result, err := svc.Broadcast(context.Background(), adminActor(), models.NotificationRequest{Subject: "x", Body: "y", Department: "EE"})

	require.NoError(t, err)
	assert.Zero(t, result.Recipients)
	assert.Empty(t, sender.messages)
}

func TestBroadcastQueueNotStarted(t *testing.T) {
	svc := NewNotificationService(&recipientsStub{count: 1}, &capturingSender{}, nil, NotificationConfig{}, nil, nil)

	_, err := svc.Broadcast(context.Background(), adminActor(), models.NotificationRequest{Subject: "x", Body: "y", Department: "CS"})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestBroadcastSynchronousFailure(t *testing.T) {
	sender := &capturingSender{fail: errors.New("sendgrid send: status 401")}
	metrics := NewMetricsService()
	svc := NewNotificationService(&recipientsStub{count: 1}, sender, metrics, NotificationConfig{Synchronous: true}, nil, nil)

	_, err := svc.Broadcast(context.Background(), adminActor(), models.NotificationRequest{Subject: "x", Body: "y", Department: "CS"})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}
