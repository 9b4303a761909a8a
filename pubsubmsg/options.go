package pubsubmsg

import (
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// PubOptLogger sets logger for Publisher.
func PubOptLogger(logger *zerolog.Logger) Option {
	return func(p *Publisher) error {
		if logger == nil {
			nop := zerolog.Nop()
			logger = &nop
		}
		p.logger = logger.With().Str("comp", "rowpub.pubsubmsg.Publisher").Logger()
		return nil
	}
}

// PubOptPublishSettings sets publish settings (batching, flow control) of topics.
func PubOptPublishSettings(settings pubsub.PublishSettings) Option {
	return func(p *Publisher) error {
		if settings.CountThreshold < 0 || settings.ByteThreshold < 0 || settings.NumGoroutines < 0 {
			return fmt.Errorf("PubOptPublishSettings got negative threshold")
		}
		p.settings = &settings
		return nil
	}
}
