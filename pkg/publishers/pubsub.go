package publishers

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
)

// pubsubTopic is the subset of *pubsub.Topic used by pubsubPublisher.
type pubsubTopic interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
	Stop()
}

// pubsubPublisher publishes events to a GCP Pub/Sub topic.
type pubsubPublisher struct {
	id     string
	typ    string
	client *pubsub.Client
	topic  pubsubTopic
	log    Logger
}

// newPubSubPublisher connects to Pub/Sub. PUBSUB_EMULATOR_HOST is honoured by
// the client library.
func newPubSubPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.PubSub == nil {
		return nil, fmt.Errorf("missing pubsub configuration")
	}

	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &pubsubPublisher{
		id:     cfg.ID,
		typ:    TypePubSub,
		client: client,
		topic:  client.Topic(cfg.PubSub.Topic),
		log:    ensureLogger(log),
	}, nil
}

func (p *pubsubPublisher) ID() string   { return p.id }
func (p *pubsubPublisher) Type() string { return p.typ }

// Publish blocks until the server acknowledges the message.
func (p *pubsubPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := evt.encode()
	if err != nil {
		return err
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       body,
		Attributes: evt.attributes(),
	})
	msgID, err := result.Get(ctx)
	if err != nil {
		p.log.ErrorObj("pubsub publisher send failed", "publisher_error", deliveryFields(p, evt, map[string]any{
			"error": err.Error(),
		}))
		return fmt.Errorf("publish to pubsub: %w", err)
	}
	p.log.DebugObj("pubsub publisher delivered event", "publisher_delivery", deliveryFields(p, evt, map[string]any{
		"message_id": msgID,
	}))
	return nil
}

// Close flushes pending messages and closes the client.
func (p *pubsubPublisher) Close() error {
	p.topic.Stop()
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
