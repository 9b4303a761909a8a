package redismsg

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/huangjunwen/rowpub"
	"github.com/huangjunwen/rowpub/msg"
)

type fakeClient struct {
	mu      sync.Mutex
	adds    []*redis.XAddArgs
	addErr  error
	pingErr error
	closed  bool
}

func (c *fakeClient) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adds = append(c.adds, a)
	if c.addErr != nil {
		return redis.NewStringResult("", c.addErr)
	}
	return redis.NewStringResult("1-0", nil)
}

func (c *fakeClient) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", c.pingErr)
}

func (c *fakeClient) Close() error {
	c.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	assert := assert.New(t)

	client := &fakeClient{}
	p, err := New(client, PubOptStreamPrefix("rows"), PubOptMaxLenApprox(1000), PubOptLogger(nil))
	assert.NoError(err)

	topic := msg.MustParseTopic("projects/my-project/topics/orders")
	assert.NoError(p.ValidateTopic(context.Background(), topic))

	m := &msg.Message{Data: []byte(`{"id":1}`)}
	m.SetAttribute("rowpub-id", "abc")
	assert.NoError(p.Publish(context.Background(), topic, m))

	assert.Len(client.adds, 1)
	args := client.adds[0]
	assert.Equal("rows:my-project:orders", args.Stream)
	assert.Equal("*", args.ID)
	assert.Equal(int64(1000), args.MaxLen)
	assert.True(args.Approx)
	assert.Equal(map[string]any{
		"data":           []byte(`{"id":1}`),
		"attr:rowpub-id": "abc",
	}, args.Values)

	// Async.
	wg := &sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		assert.NoError(p.PublishAsync(context.Background(), topic, &msg.Message{Data: []byte("{}")}, func(err error) {
			assert.NoError(err)
			wg.Done()
		}))
	}
	wg.Wait()
	assert.Len(client.adds, 6)

	assert.NoError(p.Close())
	assert.False(client.closed)
	assert.Equal(ErrClosed, p.Publish(context.Background(), topic, m))
	assert.Equal(ErrClosed, p.PublishAsync(context.Background(), topic, m, func(error) {}))
}

func TestPublishError(t *testing.T) {
	assert := assert.New(t)

	client := &fakeClient{
		addErr:  errors.New("OOM"),
		pingErr: errors.New("connection refused"),
	}
	p, err := New(client)
	assert.NoError(err)

	topic := msg.MustParseTopic("projects/my-project/topics/orders")
	assert.True(rowpub.IsCode(p.ValidateTopic(context.Background(), topic), rowpub.PublishError))
	assert.True(rowpub.IsCode(p.Publish(context.Background(), topic, &msg.Message{}), rowpub.PublishError))

	// No MAXLEN by default.
	assert.Equal(int64(0), client.adds[0].MaxLen)
	assert.Equal("rowpub:my-project:orders", client.adds[0].Stream)
}

func TestOptions(t *testing.T) {
	assert := assert.New(t)

	for i, opt := range []Option{
		PubOptStreamPrefix(""),
		PubOptStreamPrefix("a b"),
		PubOptMaxLenApprox(-1),
	} {
		_, err := New(&fakeClient{}, opt)
		assert.Error(err, "test case %d", i)
	}

	_, err := New(nil)
	assert.Error(err)
	_, err = Open("")
	assert.True(rowpub.IsCode(err, rowpub.ConfigError))
}
