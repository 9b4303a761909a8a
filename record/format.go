package record

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/civil"
)

// FormatTime renders an instant as "2006-01-02 15:04:05[.ffffff]-07:00".
// Fraction has 6 digits when the instant is microsecond aligned, 9 otherwise.
// The offset of t's location is kept.
func FormatTime(t time.Time) string {
	return t.Format("2006-01-02") + " " +
		formatClock(t.Hour(), t.Minute(), t.Second(), t.Nanosecond()) +
		t.Format("-07:00")
}

// FormatDate renders a civil date as "2006-01-02".
func FormatDate(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// FormatClock renders a civil time as "15:04:05[.ffffff]".
func FormatClock(t civil.Time) string {
	return formatClock(t.Hour, t.Minute, t.Second, t.Nanosecond)
}

// FormatDateTime renders a civil datetime (no time zone) as "2006-01-02 15:04:05[.ffffff]".
func FormatDateTime(dt civil.DateTime) string {
	return FormatDate(dt.Date) + " " + FormatClock(dt.Time)
}

func formatClock(h, m, s, ns int) string {
	ret := fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	switch {
	case ns == 0:
	case ns%1000 == 0:
		ret += fmt.Sprintf(".%06d", ns/1000)
	default:
		ret += fmt.Sprintf(".%09d", ns)
	}
	return ret
}

// FormatBytes renders binary data as standard base64.
func FormatBytes(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

var (
	bigTen = big.NewInt(10)
	bigOne = big.NewInt(1)
)

// FormatRat renders r as an exact decimal if possible (denominator divides a
// power of ten, up to 64 digits), otherwise as "a/b".
func FormatRat(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	pow := new(big.Int).Set(bigOne)
	rem := new(big.Int)
	for prec := 1; prec <= 64; prec++ {
		pow.Mul(pow, bigTen)
		if rem.Mod(pow, r.Denom()).Sign() == 0 {
			return r.FloatString(prec)
		}
	}
	return r.RatString()
}
