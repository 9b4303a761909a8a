// Package redismsg publishes messages to redis streams.
package redismsg

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/huangjunwen/rowpub"
	"github.com/huangjunwen/rowpub/msg"
)

const (
	fieldData       = "data"
	fieldAttrPrefix = "attr:"
)

// Client is the subset of redis.UniversalClient used by Publisher.
type Client interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Publisher appends each message as an entry of stream "<prefix>:<project>:<topic>".
// The payload is stored in field "data" and each attribute in field "attr:<key>".
type Publisher struct {
	// Immutable fields.
	client       Client
	ownClient    bool
	streamPrefix string
	maxLenApprox int64
	logger       zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Option is option in creating Publisher.
type Option func(*Publisher) error

var (
	_ msg.MsgPublisher      = (*Publisher)(nil)
	_ msg.MsgAsyncPublisher = (*Publisher)(nil)
	_ msg.TopicValidator    = (*Publisher)(nil)
)

// New creates a Publisher from a client. The client is not closed by Close.
func New(client Client, opts ...Option) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("redismsg.New got nil Client")
	}
	p := &Publisher{
		client:       client,
		streamPrefix: DefaultStreamPrefix,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Open creates a redis client connecting to addr then creates a Publisher owning the client.
func Open(addr string, opts ...Option) (*Publisher, error) {
	if addr == "" {
		return nil, errors.WithStack(rowpub.Errorf(rowpub.ConfigError, "empty redis address"))
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	p, err := New(client, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	p.ownClient = true
	return p, nil
}

// Stream returns the stream key of topic.
func (p *Publisher) Stream(topic msg.Topic) string {
	return p.streamPrefix + ":" + topic.Project + ":" + topic.Name
}

func (p *Publisher) xaddArgs(topic msg.Topic, m *msg.Message) *redis.XAddArgs {
	vals := make(map[string]any, 1+len(m.Attributes))
	vals[fieldData] = m.Data
	for k, v := range m.Attributes {
		vals[fieldAttrPrefix+k] = v
	}
	args := &redis.XAddArgs{
		Stream: p.Stream(topic),
		ID:     "*",
		Values: vals,
	}
	if p.maxLenApprox > 0 {
		args.MaxLen = p.maxLenApprox
		args.Approx = true
	}
	return args
}

// Publish implements msg.MsgPublisher interface.
func (p *Publisher) Publish(ctx context.Context, topic msg.Topic, m *msg.Message) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return p.publish(ctx, topic, m)
}

func (p *Publisher) publish(ctx context.Context, topic msg.Topic, m *msg.Message) error {
	id, err := p.client.XAdd(ctx, p.xaddArgs(topic, m)).Result()
	if err != nil {
		return rowpub.Wrapf(err, rowpub.PublishError, "redis XADD %s", p.Stream(topic))
	}
	p.logger.Trace().Str("id", id).Msg("published")
	return nil
}

// PublishAsync implements msg.MsgAsyncPublisher interface.
func (p *Publisher) PublishAsync(ctx context.Context, topic msg.Topic, m *msg.Message, cb func(error)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		cb(p.publish(ctx, topic, m))
	}()
	return nil
}

// ValidateTopic implements msg.TopicValidator interface. Streams are created
// on first XADD so only the connection is checked.
func (p *Publisher) ValidateTopic(ctx context.Context, topic msg.Topic) error {
	if err := topic.Validate(); err != nil {
		return err
	}
	if err := p.client.Ping(ctx).Err(); err != nil {
		return rowpub.Wrapf(err, rowpub.PublishError, "redis PING")
	}
	return nil
}

// Close waits pending async publishes then releases resources.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	if p.ownClient {
		return p.client.Close()
	}
	return nil
}
