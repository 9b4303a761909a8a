package sqlsrc

import (
	"github.com/rs/zerolog"
)

// SrcOptLogger sets logger for SQLSource.
func SrcOptLogger(logger *zerolog.Logger) Option {
	return func(src *SQLSource) error {
		if logger == nil {
			nop := zerolog.Nop()
			logger = &nop
		}
		src.logger = logger.With().Str("comp", "rowpub.sqlsrc.SQLSource").Logger()
		return nil
	}
}
