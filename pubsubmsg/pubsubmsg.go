// Package pubsubmsg publishes messages to Google Cloud Pub/Sub.
package pubsubmsg

import (
	"context"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/huangjunwen/rowpub"
	"github.com/huangjunwen/rowpub/msg"
)

// Publisher publishes messages to Pub/Sub topics. Topics may live in projects
// other than the client's.
type Publisher struct {
	// Immutable fields.
	client    *pubsub.Client
	ownClient bool
	settings  *pubsub.PublishSettings
	logger    zerolog.Logger

	mu sync.Mutex
	// Mutable fields.
	closed bool
	topics map[msg.Topic]*pubsub.Topic
}

// Option is option in creating Publisher.
type Option func(*Publisher) error

var (
	_ msg.MsgAsyncPublisher = (*Publisher)(nil)
	_ msg.TopicValidator    = (*Publisher)(nil)
)

// New creates a Publisher from a client. The client is not closed by Close.
func New(client *pubsub.Client, opts ...Option) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("pubsubmsg.New got nil *pubsub.Client")
	}
	p := &Publisher{
		client: client,
		logger: zerolog.Nop(),
		topics: make(map[msg.Topic]*pubsub.Topic),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Open creates a client for projectID then creates a Publisher owning the client.
func Open(ctx context.Context, projectID string, opts []Option, clientOpts ...option.ClientOption) (*Publisher, error) {
	if projectID == "" {
		return nil, errors.WithStack(rowpub.Errorf(rowpub.ConfigError, "empty pubsub project"))
	}
	client, err := pubsub.NewClient(ctx, projectID, clientOpts...)
	if err != nil {
		return nil, rowpub.Wrapf(err, rowpub.PublishError, "pubsub.NewClient")
	}
	p, err := New(client, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	p.ownClient = true
	return p, nil
}

func (p *Publisher) topic(topic msg.Topic) (*pubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	t := p.topics[topic]
	if t == nil {
		t = p.client.TopicInProject(topic.Name, topic.Project)
		if p.settings != nil {
			t.PublishSettings = *p.settings
		}
		p.topics[topic] = t
	}
	return t, nil
}

// PublishAsync implements msg.MsgAsyncPublisher interface. Batching is done
// by the client according to publish settings.
func (p *Publisher) PublishAsync(ctx context.Context, topic msg.Topic, m *msg.Message, cb func(error)) error {
	t, err := p.topic(topic)
	if err != nil {
		return err
	}

	res := t.Publish(ctx, &pubsub.Message{
		Data:       m.Data,
		Attributes: m.Attributes,
	})
	go func() {
		<-res.Ready()
		id, err := res.Get(context.Background())
		if err != nil {
			cb(rowpub.Wrapf(err, rowpub.PublishError, "pubsub publish to %s", topic.String()))
			return
		}
		p.logger.Trace().Str("id", id).Msg("published")
		cb(nil)
	}()
	return nil
}

// ValidateTopic implements msg.TopicValidator interface. It checks the topic exists.
func (p *Publisher) ValidateTopic(ctx context.Context, topic msg.Topic) error {
	if err := topic.Validate(); err != nil {
		return err
	}
	t, err := p.topic(topic)
	if err != nil {
		return err
	}
	ok, err := t.Exists(ctx)
	if err != nil {
		return rowpub.Wrapf(err, rowpub.PublishError, "check topic %s", topic.String())
	}
	if !ok {
		return errors.WithStack(rowpub.Errorf(rowpub.ConfigError, "topic %s not found", topic.String()))
	}
	return nil
}

// Close flushes pending messages of all topics then releases resources.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	topics := p.topics
	p.topics = nil
	p.mu.Unlock()

	for _, t := range topics {
		t.Stop()
	}
	p.logger.Info().Int("topics", len(topics)).Msg("flushed")

	if p.ownClient {
		return p.client.Close()
	}
	return nil
}
