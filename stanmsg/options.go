package stanmsg

import (
	"fmt"
	"regexp"
	"time"

	"github.com/nats-io/stan.go"
	"github.com/rs/zerolog"
)

var (
	// DefaultSubjectPrefix is the default value of DCOptSubjectPrefix.
	DefaultSubjectPrefix = "rowpub"

	// DefaultReconnectWait is the default value of DCOptReconnectWait.
	DefaultReconnectWait = 5 * time.Second

	// DefaultStanPingInterval is the default value of DCOptStanPingInterval.
	DefaultStanPingInterval = stan.DefaultPingInterval

	// DefaultStanPingMaxOut is the default value of DCOptStanPingMaxOut.
	DefaultStanPingMaxOut = stan.DefaultPingMaxOut

	// DefaultStanPubAckWait is the default value of DCOptStanPubAckWait.
	DefaultStanPubAckWait = 2 * time.Second
)

var (
	subjectPrefixRegexp = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// DCOptLogger sets logger for DurConn.
func DCOptLogger(logger *zerolog.Logger) DurConnOption {
	return func(dc *DurConn) error {
		if logger == nil {
			nop := zerolog.Nop()
			logger = &nop
		}
		dc.logger = logger.With().Str("comp", "rowpub.stanmsg.DurConn").Logger()
		return nil
	}
}

// DCOptSubjectPrefix sets subject prefix in nats streaming namespace.
func DCOptSubjectPrefix(subjectPrefix string) DurConnOption {
	return func(dc *DurConn) error {
		if !subjectPrefixRegexp.MatchString(subjectPrefix) {
			return fmt.Errorf("DCOptSubjectPrefix got invalid subject prefix %q", subjectPrefix)
		}
		dc.subjectPrefix = subjectPrefix
		return nil
	}
}

// DCOptReconnectWait sets the interval between reconnections.
func DCOptReconnectWait(t time.Duration) DurConnOption {
	return func(dc *DurConn) error {
		if t <= 0 {
			return fmt.Errorf("DCOptReconnectWait got non-positive duration %s", t.String())
		}
		dc.reconnectWait = t
		return nil
	}
}

// DCOptStanPingInterval sets stan::Pings, must >= 1 (seconds).
func DCOptStanPingInterval(interval int) DurConnOption {
	return func(dc *DurConn) error {
		if interval < 1 {
			// See: stan.go::Pings
			return fmt.Errorf("DCOptStanPingInterval got too small interval (%d<1)", interval)
		}
		dc.stanOptPingInterval = interval
		return nil
	}
}

// DCOptStanPingMaxOut sets stan::Pings, must >= 2.
func DCOptStanPingMaxOut(maxOut int) DurConnOption {
	return func(dc *DurConn) error {
		if maxOut < 2 {
			// See: stan.go::Pings
			return fmt.Errorf("DCOptStanPingMaxOut got too small max out (%d<2)", maxOut)
		}
		dc.stanOptPingMaxOut = maxOut
		return nil
	}
}

// DCOptStanPubAckWait sets stan::PubAckWait.
func DCOptStanPubAckWait(t time.Duration) DurConnOption {
	return func(dc *DurConn) error {
		if t <= 0 {
			return fmt.Errorf("DCOptStanPubAckWait got non-positive duration %s", t.String())
		}
		dc.stanOptPubAckWait = t
		return nil
	}
}

// DCOptConnectCb sets callback when nats streaming connection establish.
func DCOptConnectCb(cb func(stan.Conn)) DurConnOption {
	return func(dc *DurConn) error {
		if cb == nil {
			cb = func(_ stan.Conn) {}
		}
		dc.connectCb = cb
		return nil
	}
}

// DCOptDisconnectCb sets callback when nats streaming connection lost due to unexpected errors.
func DCOptDisconnectCb(cb func(stan.Conn)) DurConnOption {
	return func(dc *DurConn) error {
		if cb == nil {
			cb = func(_ stan.Conn) {}
		}
		dc.disconnectCb = cb
		return nil
	}
}
