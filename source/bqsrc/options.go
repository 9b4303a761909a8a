package bqsrc

import (
	"fmt"

	"github.com/rs/zerolog"
)

// SrcOptLogger sets logger for BQSource.
func SrcOptLogger(logger *zerolog.Logger) Option {
	return func(src *BQSource) error {
		if logger == nil {
			nop := zerolog.Nop()
			logger = &nop
		}
		src.logger = logger.With().Str("comp", "rowpub.bqsrc.BQSource").Logger()
		return nil
	}
}

// SrcOptLocation sets the location where query jobs run, e.g. "US", "EU".
func SrcOptLocation(location string) Option {
	return func(src *BQSource) error {
		src.location = location
		return nil
	}
}

// SrcOptLabels sets labels of query jobs.
func SrcOptLabels(labels map[string]string) Option {
	return func(src *BQSource) error {
		for k := range labels {
			if k == "" {
				return fmt.Errorf("SrcOptLabels got empty label key")
			}
		}
		src.labels = labels
		return nil
	}
}

// SrcOptDisableQueryCache disables query cache of query jobs.
func SrcOptDisableQueryCache() Option {
	return func(src *BQSource) error {
		src.noCache = true
		return nil
	}
}
