package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MiguelGP111/micampofresco/internal/core/domain"
	"github.com/MiguelGP111/micampofresco/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*EventPublisher, *fakeAsyncProducer) {
	t.Helper()

	asyncProducer := newFakeAsyncProducer()
	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "micampofresco",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "micampofresco",
		Env:  "test",
	}, zaptest.NewLogger(t))

	return publisher, asyncProducer
}

func decodeEnvelope(t *testing.T, msg *sarama.ProducerMessage) map[string]any {
	t.Helper()

	value, err := msg.Value.Encode()
	require.NoError(t, err)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(value, &envelope))
	return envelope
}

func TestPublishAccountRegistered(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	registeredAt := time.Date(2025, 10, 31, 12, 0, 0, 0, time.UTC)
	event := domain.AccountRegisteredEvent{
		EventID:      "event-123",
		AccountID:    42,
		Identifier:   "ana@example.com",
		Kind:         domain.IdentifierEmail,
		Role:         domain.RoleVendor,
		RegisteredAt: registeredAt,
	}

	require.NoError(t, publisher.PublishAccountRegistered(context.Background(), event))

	var msg *sarama.ProducerMessage
	select {
	case msg = <-asyncProducer.input:
	default:
		t.Fatal("expected message to be produced")
	}

	assert.Equal(t, "micampofresco.account.registered", msg.Topic)

	key, err := msg.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "42", string(key))

	envelope := decodeEnvelope(t, msg)
	assert.Equal(t, "event-123", envelope["event_id"])
	assert.Equal(t, EventAccountRegistered, envelope["event_type"])
	assert.Equal(t, "42", envelope["account_id"])
	assert.Equal(t, "1.0", envelope["version"])

	payload, ok := envelope["payload"].(map[string]any)
	require.True(t, ok, "payload should be an object")
	assert.Equal(t, "vendor", payload["role"])
	assert.Equal(t, "email", payload["identifier_kind"])
	assert.NotEqual(t, "ana@example.com", payload["identifier"], "identifier must be masked")

	metadata, ok := envelope["metadata"].(map[string]any)
	require.True(t, ok, "metadata should be an object")
	assert.Equal(t, "micampofresco", metadata["service"])
	assert.Equal(t, "test", metadata["environment"])
}

func TestPublishPasswordChangedGeneratesEventID(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	event := domain.PasswordChangedEvent{
		AccountID: 7,
		Method:    "recovery_code",
		ChangedAt: time.Date(2025, 11, 1, 8, 30, 0, 0, time.UTC),
	}

	require.NoError(t, publisher.PublishPasswordChanged(context.Background(), event))

	msg := <-asyncProducer.input
	assert.Equal(t, "micampofresco.account.password.changed", msg.Topic)

	envelope := decodeEnvelope(t, msg)
	assert.NotEmpty(t, envelope["event_id"])

	payload := envelope["payload"].(map[string]any)
	assert.Equal(t, "recovery_code", payload["method"])
	assert.EqualValues(t, 7, payload["account_id"])
}

func TestPublishRecoveryRequested(t *testing.T) {
	publisher, asyncProducer := newTestPublisher(t)

	ip := "203.0.113.5"
	requestedAt := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)
	event := domain.RecoveryRequestedEvent{
		EventID:           "event-recovery",
		AccountID:         9,
		Channel:           domain.ChannelWhatsApp,
		MaskedDestination: "+591***4567",
		RequestedAt:       requestedAt,
		ExpiresAt:         requestedAt.Add(time.Hour),
		IPAddress:         &ip,
	}

	require.NoError(t, publisher.PublishRecoveryRequested(context.Background(), event))

	msg := <-asyncProducer.input
	assert.Equal(t, "micampofresco.account.recovery.requested", msg.Topic)

	payload := decodeEnvelope(t, msg)["payload"].(map[string]any)
	assert.Equal(t, "whatsapp", payload["channel"])
	assert.Equal(t, "+591***4567", payload["masked_destination"])
	assert.Equal(t, ip, payload["ip_address"])
	_, hasCode := payload["code"]
	assert.False(t, hasCode, "recovery events never carry the code")
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	asyncProducer := &fakeAsyncProducer{input: make(chan *sarama.ProducerMessage)}
	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		errChan:  make(chan error, 1),
		done:     make(chan struct{}),
	}
	publisher := NewEventPublisher(producer, config.AppSettings{}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{AccountID: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTopicName(t *testing.T) {
	p := &Producer{cfg: config.KafkaSettings{TopicPrefix: "micampofresco"}}
	assert.Equal(t, "micampofresco.account.registered", p.TopicName(EventAccountRegistered))
	assert.Equal(t, "micampofresco.account.registered", p.TopicName("micampofresco.account.registered"))

	bare := &Producer{}
	assert.Equal(t, EventAccountRegistered, bare.TopicName(EventAccountRegistered))
}

func TestStubPublisherLogsEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stub := NewStubPublisher(zap.New(core))

	ctx := context.Background()
	require.NoError(t, stub.PublishAccountRegistered(ctx, domain.AccountRegisteredEvent{AccountID: 1, Identifier: "ana@example.com"}))
	require.NoError(t, stub.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{AccountID: 1, Method: "direct"}))
	require.NoError(t, stub.PublishRecoveryRequested(ctx, domain.RecoveryRequestedEvent{AccountID: 1, Channel: domain.ChannelEmail}))

	entries := logs.FilterMessage("event published").All()
	require.Len(t, entries, 3)
	assert.Equal(t, EventAccountRegistered, entries[0].ContextMap()["event_type"])
	assert.NotEqual(t, "ana@example.com", entries[0].ContextMap()["identifier"])
}
