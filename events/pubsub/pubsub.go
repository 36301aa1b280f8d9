package pubsub

import (
	"context"

	"cloud.google.com/go/pubsub"
	"github.com/Ahmed-Sermani/go-pagerank/events"
	"golang.org/x/xerrors"
)

var (
	_ events.Publisher  = (*PubSubBus)(nil)
	_ events.Subscriber = (*PubSubBus)(nil)
)

// PubSubBus publishes events to a Cloud Pub/Sub topic and receives them
// through a subscription attached to it.
type PubSubBus struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
}

// Config selects the Cloud Pub/Sub resources used by a PubSubBus.
type Config struct {
	ProjectID string

	// TopicID is required for publishing.
	TopicID string

	// SubscriptionID is required for receiving.
	SubscriptionID string
}

// NewPubSubBus connects to Cloud Pub/Sub using the application default
// credentials.
func NewPubSubBus(ctx context.Context, cfg Config) (*PubSubBus, error) {
	if cfg.ProjectID == "" {
		return nil, xerrors.New("pubsub bus: project id must be specified")
	}
	if cfg.TopicID == "" && cfg.SubscriptionID == "" {
		return nil, xerrors.New("pubsub bus: either a topic or a subscription must be specified")
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, xerrors.Errorf("pubsub bus: %w", err)
	}

	b := &PubSubBus{client: client}
	if cfg.TopicID != "" {
		b.topic = client.Topic(cfg.TopicID)
	}
	if cfg.SubscriptionID != "" {
		b.sub = client.Subscription(cfg.SubscriptionID)
	}
	return b, nil
}

// Close flushes pending publishes and releases the client.
func (b *PubSubBus) Close() error {
	if b.topic != nil {
		b.topic.Stop()
	}
	return b.client.Close()
}

// Publish blocks until the server acknowledged the event.
func (b *PubSubBus) Publish(ctx context.Context, e events.BlockedRequest) error {
	if b.topic == nil {
		return xerrors.New("publish event: no topic configured")
	}

	data, err := e.Encode()
	if err != nil {
		return err
	}
	res := b.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"reason":  e.Reason,
			"country": e.Country,
		},
	})
	if _, err = res.Get(ctx); err != nil {
		return xerrors.Errorf("publish event: %w", err)
	}
	return nil
}

// Receive pulls messages from the subscription until ctx expires.
func (b *PubSubBus) Receive(ctx context.Context, h events.Handler) error {
	if b.sub == nil {
		return xerrors.New("receive events: no subscription configured")
	}

	err := b.sub.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		h(ctx, message{m})
	})
	if err != nil {
		return xerrors.Errorf("receive events: %w", err)
	}
	return nil
}

type message struct {
	m *pubsub.Message
}

func (msg message) Data() []byte { return msg.m.Data }
func (msg message) Ack()         { msg.m.Ack() }
func (msg message) Nack()        { msg.m.Nack() }
