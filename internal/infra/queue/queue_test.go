package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/gymcrm-sync/internal/entity"
)

type fakeChannel struct {
	exchange, key string
	published     []amqp.Publishing
	deliveries    chan amqp.Delivery
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key = exchange, key
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

// fakeAck registra ack/nack das entregas.
type fakeAck struct {
	acks, nacks int
}

func (a *fakeAck) Ack(uint64, bool) error        { a.acks++; return nil }
func (a *fakeAck) Nack(uint64, bool, bool) error { a.nacks++; return nil }
func (a *fakeAck) Reject(uint64, bool) error     { a.nacks++; return nil }

// MockMailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendWelcome(to, name, program, trackerLink string) error {
	args := m.Called(to, name, program, trackerLink)
	return args.Error(0)
}

func delivery(t *testing.T, ack *fakeAck, event entity.LeadEvent) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestPublishLeadEvent(t *testing.T) {
	ch := &fakeChannel{}
	at := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	event := entity.LeadEvent{ID: "ev-1", Status: entity.StatusChallengeSignUp, FirstName: "Jane", OccurredAt: at}

	require.NoError(t, NewProducer(ch).PublishLeadEvent(context.Background(), event))
	require.Len(t, ch.published, 1)
	assert.Equal(t, ExchangeName, ch.exchange)
	assert.Equal(t, RoutingKey, ch.key)

	msg := ch.published[0]
	assert.Equal(t, "ev-1", msg.MessageId)
	assert.Equal(t, LeadStatusChanged, msg.Type)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var decoded entity.LeadEvent
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, entity.StatusChallengeSignUp, decoded.Status)
	assert.True(t, at.Equal(decoded.OccurredAt))
}

func TestWorkerWelcomesChallenger(t *testing.T) {
	mailer := new(MockMailer)
	mailer.On("SendWelcome", "jane@gym.com", "Jane", "6-Week Challenge", "https://files/x").Return(nil)
	ack := &fakeAck{}

	w := NewWorker(nil, mailer, 6)
	w.handle(context.Background(), delivery(t, ack, entity.LeadEvent{
		Status: entity.StatusChallengeSignUp, FirstName: "Jane", LastName: "Doe", Email: "jane@gym.com", ChallengerFile: "https://files/x",
	}))

	assert.Equal(t, 1, ack.acks)
	mailer.AssertExpectations(t)
}

func TestWorkerNamesChallengeByConfiguredLength(t *testing.T) {
	mailer := new(MockMailer)
	mailer.On("SendWelcome", "jane@gym.com", "Jane", "8-Week Challenge", "https://files/x").Return(nil)
	ack := &fakeAck{}

	NewWorker(nil, mailer, 8).handle(context.Background(), delivery(t, ack, entity.LeadEvent{
		Status: entity.StatusChallengeSignUp, FirstName: "Jane", Email: "jane@gym.com", ChallengerFile: "https://files/x",
	}))

	assert.Equal(t, 1, ack.acks)
	mailer.AssertExpectations(t)
	assert.Equal(t, "6-Week Challenge", ChallengeProgram(0))
}

func TestWorkerWelcomesMember(t *testing.T) {
	mailer := new(MockMailer)
	mailer.On("SendWelcome", "bob@gym.com", "Bob", ProgramMembership, "").Return(nil)
	ack := &fakeAck{}

	NewWorker(nil, mailer, 6).handle(context.Background(), delivery(t, ack, entity.LeadEvent{
		Status: entity.StatusMemberSignUp, FirstName: "Bob", Email: "bob@gym.com",
	}))

	assert.Equal(t, 1, ack.acks)
	mailer.AssertExpectations(t)
}

func TestWorkerIgnoresOtherStatusesAndMissingEmail(t *testing.T) {
	mailer := new(MockMailer)
	ack := &fakeAck{}
	w := NewWorker(nil, mailer, 6)

	w.handle(context.Background(), delivery(t, ack, entity.LeadEvent{Status: entity.StatusNoShow, Email: "x@gym.com"}))
	w.handle(context.Background(), delivery(t, ack, entity.LeadEvent{Status: entity.StatusMemberSignUp}))

	assert.Equal(t, 2, ack.acks)
	mailer.AssertNotCalled(t, "SendWelcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkerNacksOnFailure(t *testing.T) {
	mailer := new(MockMailer)
	mailer.On("SendWelcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	ack := &fakeAck{}
	w := NewWorker(nil, mailer, 6)

	w.handle(context.Background(), delivery(t, ack, entity.LeadEvent{Status: entity.StatusMemberSignUp, Email: "bob@gym.com"}))
	w.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{bad")})

	assert.Equal(t, 0, ack.acks)
	assert.Equal(t, 2, ack.nacks)
}

func TestWorkerStartStopsOnContextCancel(t *testing.T) {
	sent := make(chan struct{}, 1)
	mailer := new(MockMailer)
	mailer.On("SendWelcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { sent <- struct{}{} }).
		Return(nil)
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 1)}
	ack := &fakeAck{}
	ch.deliveries <- delivery(t, ack, entity.LeadEvent{Status: entity.StatusMemberSignUp, Email: "bob@gym.com"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewWorker(ch, mailer, 6).Start(ctx, QueueName) }()

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("evento não consumido")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker não parou")
	}
}
