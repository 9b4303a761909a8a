package redismsg

import (
	"fmt"
	"regexp"

	"github.com/rs/zerolog"
)

var (
	// DefaultStreamPrefix is the default value of PubOptStreamPrefix.
	DefaultStreamPrefix = "rowpub"
)

var (
	streamPrefixRegexp = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// PubOptLogger sets logger for Publisher.
func PubOptLogger(logger *zerolog.Logger) Option {
	return func(p *Publisher) error {
		if logger == nil {
			nop := zerolog.Nop()
			logger = &nop
		}
		p.logger = logger.With().Str("comp", "rowpub.redismsg.Publisher").Logger()
		return nil
	}
}

// PubOptStreamPrefix sets stream key prefix.
func PubOptStreamPrefix(prefix string) Option {
	return func(p *Publisher) error {
		if !streamPrefixRegexp.MatchString(prefix) {
			return fmt.Errorf("PubOptStreamPrefix got invalid prefix %q", prefix)
		}
		p.streamPrefix = prefix
		return nil
	}
}

// PubOptMaxLenApprox trims streams to about n entries (XADD MAXLEN ~ n). 0 to disable.
func PubOptMaxLenApprox(n int64) Option {
	return func(p *Publisher) error {
		if n < 0 {
			return fmt.Errorf("PubOptMaxLenApprox got negative length %d", n)
		}
		p.maxLenApprox = n
		return nil
	}
}
