package pipe

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huangjunwen/rowpub"
	"github.com/huangjunwen/rowpub/enc"
	"github.com/huangjunwen/rowpub/msg"
	"github.com/huangjunwen/rowpub/record"
	"github.com/huangjunwen/rowpub/source"
)

const (
	testQuery = "SELECT id, name FROM users"
	testTopic = "projects/my-project/topics/users"
)

// fakePublisher acks each message asynchronously after delay.
type fakePublisher struct {
	delay       time.Duration
	failAt      int64 // 1-based, 0 for never
	validateErr error

	mu       sync.Mutex
	msgs     []*msg.Message
	topics   []msg.Topic
	n        int64
	inflight int64
	maxSeen  int64
}

func (p *fakePublisher) PublishAsync(ctx context.Context, topic msg.Topic, m *msg.Message, cb func(error)) error {
	p.mu.Lock()
	p.msgs = append(p.msgs, m)
	p.topics = append(p.topics, topic)
	p.n++
	n := p.n
	p.mu.Unlock()

	cur := atomic.AddInt64(&p.inflight, 1)
	for {
		old := atomic.LoadInt64(&p.maxSeen)
		if cur <= old || atomic.CompareAndSwapInt64(&p.maxSeen, old, cur) {
			break
		}
	}

	go func() {
		time.Sleep(p.delay)
		atomic.AddInt64(&p.inflight, -1)
		if n == p.failAt {
			cb(rowpub.Errorf(rowpub.PublishError, "nack %d", n))
			return
		}
		cb(nil)
	}()
	return nil
}

func (p *fakePublisher) ValidateTopic(ctx context.Context, topic msg.Topic) error {
	return p.validateErr
}

func users(n int) []*record.Record {
	ret := make([]*record.Record, n)
	for i := 0; i < n; i++ {
		ret[i] = record.New(
			record.Field{Name: "id", Value: record.Int(int64(i))},
			record.Field{Name: "name", Value: record.String("Ann")},
		)
	}
	return ret
}

func TestRun(t *testing.T) {
	assert := assert.New(t)

	pub := &fakePublisher{delay: time.Millisecond}
	pipe, err := NewRowPipe(source.NewStaticSource(users(100)...), testQuery, testTopic, pub,
		PipeOptMaxInflight(8),
		PipeOptLogger(nil),
	)
	require.NoError(t, err)

	stats, err := pipe.Run(context.Background())
	assert.NoError(err)
	assert.Equal(int64(100), stats.Rows)
	assert.Equal(int64(100), stats.Published)
	assert.Equal(int64(0), stats.EncodeErrors)
	assert.Equal(int64(0), stats.PublishErrors)
	assert.True(stats.LatencyP50 > 0)
	assert.True(stats.LatencyP99 >= stats.LatencyP50)
	assert.True(pub.maxSeen <= 8, "max inflight %d", pub.maxSeen)

	ids := map[string]struct{}{}
	for i, m := range pub.msgs {
		assert.Equal(testTopic, pub.topics[i].String())
		v := map[string]interface{}{}
		assert.NoError(json.Unmarshal(m.Data, &v))
		assert.Equal("Ann", v["name"])
		ids[m.Attribute(DefaultIDAttribute)] = struct{}{}
	}
	assert.Len(ids, 100)
}

func TestRunSyncPublisher(t *testing.T) {
	assert := assert.New(t)

	var got []string
	pub := msg.MsgPublisherFunc(func(ctx context.Context, topic msg.Topic, m *msg.Message) error {
		got = append(got, string(m.Data))
		return nil
	})
	pipe, err := NewRowPipe(source.NewStaticSource(users(2)...), testQuery, testTopic, pub, PipeOptIDAttribute(""))
	require.NoError(t, err)

	stats, err := pipe.Run(context.Background())
	assert.NoError(err)
	assert.Equal(int64(2), stats.Published)
	assert.Equal([]string{`{"id":0,"name":"Ann"}`, `{"id":1,"name":"Ann"}`}, got)
}

func TestRunEncodeError(t *testing.T) {
	recs := users(10)
	recs[3].Set("id", record.Number("not-a-number"))

	for i, testCase := range []*struct {
		Skip              bool
		ExpectError       bool
		ExpectPublished   int64
		ExpectEncodeError int64
	}{
		{false, true, 3, 0},
		{true, false, 9, 1},
	} {
		assert := assert.New(t)

		pub := &fakePublisher{}
		pipe, err := NewRowPipe(source.NewStaticSource(recs...), testQuery, testTopic, pub,
			PipeOptSkipEncodeErrors(testCase.Skip),
		)
		require.NoError(t, err)

		stats, err := pipe.Run(context.Background())
		if testCase.ExpectError {
			assert.Error(err, "test case %d", i)
			assert.True(rowpub.IsCode(err, rowpub.EncodingError), "test case %d", i)
			assert.Contains(err.Error(), "row 3", "test case %d", i)
		} else {
			assert.NoError(err, "test case %d", i)
		}
		assert.Equal(testCase.ExpectPublished, stats.Published, "test case %d", i)
		assert.Equal(testCase.ExpectEncodeError, stats.EncodeErrors, "test case %d", i)
	}
}

func TestRunPublishError(t *testing.T) {
	assert := assert.New(t)

	pub := &fakePublisher{failAt: 5}
	pipe, err := NewRowPipe(source.NewStaticSource(users(10000)...), testQuery, testTopic, pub,
		PipeOptMaxInflight(1),
	)
	require.NoError(t, err)

	stats, err := pipe.Run(context.Background())
	assert.True(rowpub.IsCode(err, rowpub.PublishError))
	assert.Equal(int64(1), stats.PublishErrors)
	assert.Equal(int64(4), stats.Published)
	assert.True(stats.Rows < 10000)
}

func TestRunValidate(t *testing.T) {
	assert := assert.New(t)

	// Empty query.
	pub := &fakePublisher{}
	pipe, err := NewRowPipe(source.NewStaticSource(users(1)...), "  ", testTopic, pub)
	require.NoError(t, err)
	_, err = pipe.Run(context.Background())
	assert.True(rowpub.IsCode(err, rowpub.ConfigError))
	assert.Len(pub.msgs, 0)

	// Topic rejected by publisher.
	pub = &fakePublisher{validateErr: rowpub.Errorf(rowpub.ConfigError, "topic not found")}
	pipe, err = NewRowPipe(source.NewStaticSource(users(1)...), testQuery, testTopic, pub)
	require.NoError(t, err)
	_, err = pipe.Run(context.Background())
	assert.True(rowpub.IsCode(err, rowpub.ConfigError))
	assert.Len(pub.msgs, 0)

	// Malformed topic.
	_, err = NewRowPipe(source.NewStaticSource(), testQuery, "my-topic", pub)
	assert.True(rowpub.IsCode(err, rowpub.ConfigError))

	// Bad downstream.
	_, err = NewRowPipe(source.NewStaticSource(), testQuery, testTopic, 3)
	assert.Error(err)
}

func TestRunCancel(t *testing.T) {
	assert := assert.New(t)

	pub := &fakePublisher{delay: 10 * time.Millisecond}
	pipe, err := NewRowPipe(source.NewStaticSource(users(10000)...), testQuery, testTopic, pub,
		PipeOptMaxInflight(1),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	stats, err := pipe.Run(ctx)
	assert.True(errors.Is(err, context.DeadlineExceeded))
	assert.True(stats.Published < 10000)
	assert.Equal(int64(0), atomic.LoadInt64(&pub.inflight))
}

func TestRunRate(t *testing.T) {
	assert := assert.New(t)

	pub := &fakePublisher{}
	pipe, err := NewRowPipe(source.NewStaticSource(users(6)...), testQuery, testTopic, pub,
		PipeOptRate(100, 1),
	)
	require.NoError(t, err)

	start := time.Now()
	stats, err := pipe.Run(context.Background())
	assert.NoError(err)
	assert.Equal(int64(6), stats.Published)
	assert.True(time.Since(start) >= 40*time.Millisecond)
}

func TestOptions(t *testing.T) {
	assert := assert.New(t)

	for i, opt := range []PipeOption{
		PipeOptMaxInflight(0),
		PipeOptRate(10, 0),
		PipeOptEncoder(nil),
		PipeOptIDAttribute("a b"),
	} {
		_, err := NewRowPipe(source.NewStaticSource(), testQuery, testTopic, &fakePublisher{}, opt)
		assert.Error(err, "test case %d", i)
	}

	custom := &enc.EncoderFunc{
		Name: "const",
		Fn:   func(*record.Record) ([]byte, error) { return []byte("x"), nil },
	}
	pub := &fakePublisher{}
	pipe, err := NewRowPipe(source.NewStaticSource(users(1)...), testQuery, testTopic, pub, PipeOptEncoder(custom))
	assert.NoError(err)
	_, err = pipe.Run(context.Background())
	assert.NoError(err)
	assert.Equal("x", string(pub.msgs[0].Data))
}
