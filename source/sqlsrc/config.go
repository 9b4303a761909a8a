package sqlsrc

import (
	"github.com/go-sql-driver/mysql"

	"github.com/huangjunwen/rowpub"
)

var supportedDrivers = map[string]struct{}{
	"mysql":    {},
	"postgres": {},
	"sqlite":   {},
}

// IsSupportedDriver returns true if driverName is registered by this package.
func IsSupportedDriver(driverName string) bool {
	_, ok := supportedDrivers[driverName]
	return ok
}

// normalizeDSN adjusts dsn of driverName before opening. For mysql, time
// columns are always parsed into time.Time (in UTC unless loc is given) so
// that they are rendered the same as other drivers.
func normalizeDSN(driverName, dsn string) (string, error) {
	if driverName != "mysql" {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", rowpub.Wrapf(err, rowpub.ConfigError, "parse mysql dsn")
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
