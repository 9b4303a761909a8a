package pipe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/juju/ratelimit"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/huangjunwen/rowpub/enc"
	"github.com/huangjunwen/rowpub/enc/jsonenc"
	"github.com/huangjunwen/rowpub/msg"
	"github.com/huangjunwen/rowpub/record"
	"github.com/huangjunwen/rowpub/source"
)

// RowPipe reads rows of a query, encodes each one into a message and publishes
// it to a topic.
type RowPipe struct {
	// Immutable fields.
	src              source.Source
	query            string
	topic            msg.Topic
	downstream       interface{} // msg.MsgPublisher or msg.MsgAsyncPublisher
	encoder          enc.Encoder
	logger           zerolog.Logger
	maxInflight      int
	bucket           *ratelimit.Bucket
	skipEncodeErrors bool
	idAttr           string
}

// PipeOption is option in creating RowPipe.
type PipeOption func(*RowPipe) error

// Stats is the summary of a run.
type Stats struct {
	// Rows is the number of rows read from source.
	Rows int64

	// Published is the number of messages published successfully.
	Published int64

	// EncodeErrors is the number of rows skipped due to encoding error.
	EncodeErrors int64

	// PublishErrors is the number of failed publishes.
	PublishErrors int64

	// LatencyP50 and LatencyP99 are publish latencies of successful publishes.
	LatencyP50 time.Duration
	LatencyP99 time.Duration
}

type pubResult struct {
	row     int64
	id      string
	err     error
	latency time.Duration
}

const (
	maxLatencyMicros = int64(10 * time.Minute / time.Microsecond)
)

// NewRowPipe creates a RowPipe. `topic` is a topic identifier of the form
// "projects/<PROJECT>/topics/<TOPIC>". `downstream` must be msg.MsgPublisher
// or msg.MsgAsyncPublisher.
func NewRowPipe(src source.Source, query, topic string, downstream interface{}, opts ...PipeOption) (*RowPipe, error) {
	if src == nil {
		return nil, errors.New("NewRowPipe got nil source.Source")
	}

	switch downstream.(type) {
	case msg.MsgAsyncPublisher, msg.MsgPublisher:
	default:
		return nil, fmt.Errorf("NewRowPipe expect msg.MsgPublisher or msg.MsgAsyncPublisher but got %T", downstream)
	}

	t, err := msg.ParseTopic(topic)
	if err != nil {
		return nil, err
	}

	pipe := &RowPipe{
		src:         src,
		query:       query,
		topic:       t,
		downstream:  downstream,
		encoder:     jsonenc.Default,
		logger:      zerolog.Nop(),
		maxInflight: DefaultMaxInflight,
		idAttr:      DefaultIDAttribute,
	}
	for _, opt := range opts {
		if err := opt(pipe); err != nil {
			return nil, err
		}
	}
	return pipe, nil
}

// Topic returns the destination topic.
func (pipe *RowPipe) Topic() msg.Topic {
	return pipe.topic
}

// Validate checks the query and the topic without processing any row.
func (pipe *RowPipe) Validate(ctx context.Context) error {
	if err := pipe.src.Validate(ctx, pipe.query); err != nil {
		return err
	}
	if v, ok := pipe.downstream.(msg.TopicValidator); ok {
		if err := v.ValidateTopic(ctx, pipe.topic); err != nil {
			return err
		}
	}
	return nil
}

// Run validates then runs the pipe until all rows are published or the first
// failure. It returns after all outgoing publishes have completed.
func (pipe *RowPipe) Run(ctx context.Context) (stats Stats, err error) {
	logger := pipe.logger

	if err = pipe.Validate(ctx); err != nil {
		logger.Error().Err(err).Msg("validate failed")
		return
	}
	logger.Info().Str("topic", pipe.topic.String()).Msg("validate ok")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	iter, err := pipe.src.Query(ctx, pipe.query)
	if err != nil {
		logger.Error().Err(err).Msg("query failed")
		return
	}

	resultCh := make(chan pubResult, pipe.maxInflight) // for post process
	ctrlCh := make(chan struct{}, pipe.maxInflight)    // for speed control

	// Post process go routine.
	var (
		published     int64
		publishErrors int64
		publishErr    error
		hist          = hdrhistogram.New(1, maxLatencyMicros, 3)
		postDone      = make(chan struct{})
	)
	go func() {
		defer close(postDone)

		// Loop until end.
		for result := range resultCh {
			// NOTE: Cancel ctx if error, but don't break the loop until resultCh is closed.
			if result.err != nil {
				publishErrors++
				if publishErr == nil {
					publishErr = result.err
					cancel()
				}
				logger.Error().Err(result.err).Int64("row", result.row).Str("msgId", result.id).Msg("publish failed")
			} else {
				published++
				hist.RecordValue(clamp(int64(result.latency/time.Microsecond), 1, maxLatencyMicros))
			}
			// Put back quota.
			<-ctrlCh
		}
		logger.Debug().Msg("post process go routine ended")
	}()

	pubCbWg := &sync.WaitGroup{}
	flush := func(row int64, data []byte) error {
		if pipe.bucket != nil {
			if d := pipe.bucket.Take(1); d > 0 {
				timer := time.NewTimer(d)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-timer.C:
				}
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ctrlCh <- struct{}{}: // Try to get quota.
		}
		if err := ctx.Err(); err != nil {
			<-ctrlCh
			return err
		}

		m := &msg.Message{Data: data}
		id := ""
		if pipe.idAttr != "" {
			id = xid.New().String()
			m.SetAttribute(pipe.idAttr, id)
		}

		start := time.Now()
		pubCbWg.Add(1)
		pipe.publish(ctx, m, func(err error) {
			select {
			case resultCh <- pubResult{row: row, id: id, err: err, latency: time.Since(start)}:
			default:
				// XXX: cap(resultCh) == cap(ctrlCh), so it should never block.
				panic(fmt.Errorf("Unexpected branch"))
			}
			pubCbWg.Done()
		})
		return nil
	}

	var (
		rows         int64
		encodeErrors int64
	)
	logger.Info().Msg("rows reading starting")

	readErr := source.Drain(iter, func(rec *record.Record) error {
		row := rows
		rows++

		data, err := pipe.encoder.EncodeRecord(rec)
		if err != nil {
			err = errors.WithMessagef(err, "encode row %d", row)
			if !pipe.skipEncodeErrors {
				return err
			}
			encodeErrors++
			logger.Error().Err(err).Int64("row", row).Msg("encode failed, skipped")
			return nil
		}
		return flush(row, data)
	})

	// Wait all outgoing publish callbacks done then post process.
	pubCbWg.Wait()
	close(resultCh)
	<-postDone

	stats = Stats{
		Rows:          rows,
		Published:     published,
		EncodeErrors:  encodeErrors,
		PublishErrors: publishErrors,
		LatencyP50:    time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond,
		LatencyP99:    time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
	}
	if published == 0 {
		stats.LatencyP50 = 0
		stats.LatencyP99 = 0
	}

	switch {
	case publishErr != nil:
		err = publishErr
	case readErr != nil:
		err = readErr
	}

	l := logger.Info()
	if err != nil {
		l = logger.Error().Err(err)
	}
	l.Int64("rows", stats.Rows).
		Int64("published", stats.Published).
		Int64("encodeErrors", stats.EncodeErrors).
		Int64("publishErrors", stats.PublishErrors).
		Dur("p50", stats.LatencyP50).
		Dur("p99", stats.LatencyP99).
		Msg("rows reading ended")

	return
}

func (pipe *RowPipe) publish(ctx context.Context, m *msg.Message, cb func(error)) {
	// Use PublishAsync if downstream is MsgAsyncPublisher for higher throughput.
	switch downstream := pipe.downstream.(type) {
	case msg.MsgAsyncPublisher:
		if err := downstream.PublishAsync(ctx, pipe.topic, m, cb); err != nil {
			cb(err)
		}

	case msg.MsgPublisher:
		cb(downstream.Publish(ctx, pipe.topic, m))

	default:
		panic(fmt.Errorf("downstream %T is neither MsgPublisher nor MsgAsyncPublisher", pipe.downstream))
	}
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
