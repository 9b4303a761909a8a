// Package stanmsg publishes messages to nats streaming.
package stanmsg

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/stan.go"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/huangjunwen/rowpub"
	"github.com/huangjunwen/rowpub/msg"
)

// DurConn provides re-connection on top of stan.Conn and publishes messages
// to subject "<prefix>.<project>.<topic>". Message attributes are dropped
// since nats streaming messages have no headers.
type DurConn struct {
	// Immutable fields.
	nc                  *nats.Conn
	clusterID           string
	subjectPrefix       string
	logger              zerolog.Logger
	reconnectWait       time.Duration
	stanOptPingInterval int
	stanOptPingMaxOut   int
	stanOptPubAckWait   time.Duration
	connectCb           func(stan.Conn)
	disconnectCb        func(stan.Conn)
	stanConnect         func(clusterID, clientID string, opts ...stan.Option) (stan.Conn, error)

	connectMu sync.Mutex   // at most one connect can be run at any time
	mu        sync.RWMutex // to protect mutable fields

	// Mutable fields.
	closed      bool
	sc          stan.Conn     // nil if DurConn has not connected or is reconnecting
	connectedCh chan struct{} // closed when sc becomes non nil
	closeCh     chan struct{}
}

// DurConnOption is option in creating DurConn.
type DurConnOption func(*DurConn) error

var (
	_ msg.MsgAsyncPublisher = (*DurConn)(nil)
	_ msg.TopicValidator    = (*DurConn)(nil)
)

// NewDurConn creates a new DurConn. `nc` must have MaxReconnect < 0 (e.g. never give up trying to reconnect).
// Connecting to the streaming server starts in background.
func NewDurConn(nc *nats.Conn, clusterID string, opts ...DurConnOption) (*DurConn, error) {
	if nc == nil || nc.Opts.MaxReconnect >= 0 {
		return nil, ErrNCMaxReconnect
	}
	return newDurConn(nc, clusterID, stan.Connect, opts...)
}

func newDurConn(
	nc *nats.Conn,
	clusterID string,
	stanConnect func(string, string, ...stan.Option) (stan.Conn, error),
	opts ...DurConnOption,
) (*DurConn, error) {

	if clusterID == "" {
		return nil, rowpub.Errorf(rowpub.ConfigError, "empty nats streaming cluster id")
	}

	dc := &DurConn{
		nc:                  nc,
		clusterID:           clusterID,
		subjectPrefix:       DefaultSubjectPrefix,
		logger:              zerolog.Nop(),
		reconnectWait:       DefaultReconnectWait,
		stanOptPingInterval: DefaultStanPingInterval,
		stanOptPingMaxOut:   DefaultStanPingMaxOut,
		stanOptPubAckWait:   DefaultStanPubAckWait,
		connectCb:           func(_ stan.Conn) {},
		disconnectCb:        func(_ stan.Conn) {},
		stanConnect:         stanConnect,
		connectedCh:         make(chan struct{}),
		closeCh:             make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(dc); err != nil {
			return nil, err
		}
	}

	go dc.connect(false)
	return dc, nil
}

func (dc *DurConn) connect(wait bool) {
	if wait {
		select {
		case <-time.After(dc.reconnectWait):
		case <-dc.closeCh:
			return
		}
	}

	dc.connectMu.Lock()
	defer dc.connectMu.Unlock()

	// Reset connection: release old connection
	{
		dc.mu.Lock()
		if dc.closed {
			dc.mu.Unlock()
			dc.logger.Info().Msg("closed when reseting connection")
			return
		}
		sc := dc.sc
		if sc != nil {
			dc.sc = nil
			dc.connectedCh = make(chan struct{})
		}
		dc.mu.Unlock()

		if sc != nil {
			sc.Close()
		}
	}

	// Connect
	var sc stan.Conn
	{
		opts := []stan.Option{
			stan.Pings(dc.stanOptPingInterval, dc.stanOptPingMaxOut),
			stan.PubAckWait(dc.stanOptPubAckWait),
			stan.NatsConn(dc.nc),
			// NOTE: ConnectionLostHandler is used to be notified if the Streaming connection
			// is closed due to unexpected errors.
			// The callback will not be invoked on normal Conn.Close().
			stan.SetConnectionLostHandler(func(sc stan.Conn, err error) {
				dc.disconnectCb(sc)
				dc.logger.Error().Err(err).Msg("connection lost")
				// reconnect after a while
				go dc.connect(true)
			}),
		}

		// NOTE: Use a unique id as client id since the connection is used for publishing only.
		var err error
		sc, err = dc.stanConnect(dc.clusterID, xid.New().String(), opts...)
		if err != nil {
			dc.logger.Error().Err(err).Msg("connect failed")
			go dc.connect(true)
			return
		}
		dc.connectCb(sc)
	}

	// Update new connection
	{
		dc.mu.Lock()
		if dc.closed {
			dc.mu.Unlock()
			sc.Close()
			dc.logger.Info().Msg("closed when updating connection")
			return
		}
		dc.sc = sc
		close(dc.connectedCh)
		dc.mu.Unlock()
	}

	dc.logger.Info().Msg("connected")
}

// PublishAsync implements msg.MsgAsyncPublisher interface.
func (dc *DurConn) PublishAsync(ctx context.Context, topic msg.Topic, m *msg.Message, cb func(error)) error {
	dc.mu.RLock()
	closed := dc.closed
	sc := dc.sc
	dc.mu.RUnlock()

	if closed {
		return ErrClosed
	}
	if sc == nil {
		return ErrNotConnected
	}

	// TODO: sc.PublishAsync maybe block in some rare condition:
	// see https://github.com/nats-io/stan.go/issues/210
	_, err := sc.PublishAsync(
		subjectFormat(dc.subjectPrefix, topic),
		m.Data,
		func(_ string, err error) {
			if err != nil {
				err = rowpub.Wrapf(err, rowpub.PublishError, "stan publish")
			}
			cb(err)
		},
	)
	return err
}

// ValidateTopic implements msg.TopicValidator interface. It waits until the
// streaming connection is established or ctx done.
func (dc *DurConn) ValidateTopic(ctx context.Context, topic msg.Topic) error {
	if err := topic.Validate(); err != nil {
		return err
	}

	dc.mu.RLock()
	closed := dc.closed
	connectedCh := dc.connectedCh
	dc.mu.RUnlock()

	if closed {
		return ErrClosed
	}

	select {
	case <-connectedCh:
		return nil
	case <-dc.closeCh:
		return ErrClosed
	case <-ctx.Done():
		return rowpub.Wrapf(ctx.Err(), rowpub.PublishError, "wait nats streaming connection")
	}
}

// Close closes the DurConn.
func (dc *DurConn) Close() {
	dc.mu.Lock()
	if dc.closed {
		dc.mu.Unlock()
		return
	}
	sc := dc.sc
	dc.sc = nil
	dc.closed = true
	close(dc.closeCh)
	dc.mu.Unlock()

	if sc != nil {
		sc.Close()
	}
}
