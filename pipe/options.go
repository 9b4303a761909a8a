package pipe

import (
	"fmt"
	"regexp"

	"github.com/juju/ratelimit"
	"github.com/rs/zerolog"

	"github.com/huangjunwen/rowpub/enc"
)

var (
	// DefaultMaxInflight is the default value of PipeOptMaxInflight.
	DefaultMaxInflight = 1024

	// DefaultIDAttribute is the default value of PipeOptIDAttribute.
	DefaultIDAttribute = "rowpub-id"
)

var (
	attrNameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_.-]*$`)
)

// PipeOptLogger sets logger for RowPipe.
func PipeOptLogger(logger *zerolog.Logger) PipeOption {
	return func(pipe *RowPipe) error {
		if logger == nil {
			nop := zerolog.Nop()
			logger = &nop
		}
		pipe.logger = logger.With().Str("comp", "rowpub.pipe.RowPipe").Logger()
		return nil
	}
}

// PipeOptEncoder sets the encoder for rows. Default jsonenc.Default.
func PipeOptEncoder(encoder enc.Encoder) PipeOption {
	return func(pipe *RowPipe) error {
		if encoder == nil {
			return fmt.Errorf("PipeOptEncoder got nil enc.Encoder")
		}
		pipe.encoder = encoder
		return nil
	}
}

// PipeOptMaxInflight sets the max number of messages inflight (publishing).
func PipeOptMaxInflight(maxInflight int) PipeOption {
	return func(pipe *RowPipe) error {
		if maxInflight < 1 {
			return fmt.Errorf("PipeOptMaxInflight should be at least 1, but got %d", maxInflight)
		}
		pipe.maxInflight = maxInflight
		return nil
	}
}

// PipeOptRate limits publishing to `rate` messages per second with bursts
// up to `burst` messages. rate <= 0 means unlimited.
func PipeOptRate(rate float64, burst int64) PipeOption {
	return func(pipe *RowPipe) error {
		if rate <= 0 {
			pipe.bucket = nil
			return nil
		}
		if burst < 1 {
			return fmt.Errorf("PipeOptRate burst should be at least 1, but got %d", burst)
		}
		pipe.bucket = ratelimit.NewBucketWithRate(rate, burst)
		return nil
	}
}

// PipeOptSkipEncodeErrors sets whether rows failed to encode are logged and
// skipped rather than failing the run.
func PipeOptSkipEncodeErrors(skip bool) PipeOption {
	return func(pipe *RowPipe) error {
		pipe.skipEncodeErrors = skip
		return nil
	}
}

// PipeOptIDAttribute sets the attribute name carrying a unique message id.
// Empty name disables it.
func PipeOptIDAttribute(name string) PipeOption {
	return func(pipe *RowPipe) error {
		if !attrNameRegexp.MatchString(name) {
			return fmt.Errorf("PipeOptIDAttribute got invalid name %q", name)
		}
		pipe.idAttr = name
		return nil
	}
}
