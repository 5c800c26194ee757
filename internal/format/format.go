package format

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	satsPerBTC    = 100_000_000
	btcThreshold  = 10_000
	minFracDigits = 3
	zeroSats      = "0 sat"
	// groups digits by three with a single space and no decimals
	groupedFormat = "# ###."
)

// FmtSats renders an amount of satoshis for display.
// Example: FmtSats(9999) => "9 999 sat", FmtSats(150000000) => "1.500 BTC"
func FmtSats(sats int64) string {
	if sats < 0 {
		return zeroSats
	}
	if sats < btcThreshold {
		return group(sats) + " sat"
	}
	whole := group(sats / satsPerBTC)
	frac := sats % satsPerBTC
	if frac == 0 {
		return whole + " BTC"
	}
	digits := strconv.FormatInt(frac, 10)
	digits = strings.Repeat("0", 8-len(digits)) + digits
	digits = strings.TrimRight(digits, "0")
	if len(digits) < minFracDigits {
		digits += strings.Repeat("0", minFracDigits-len(digits))
	}
	return whole + "." + digits + " BTC"
}

// FmtAmount is the template-facing variant of FmtSats. Absent or invalid values
// render as "0 sat".
func FmtAmount(v any) string {
	switch n := v.(type) {
	case nil:
		return zeroSats
	case int:
		return FmtSats(int64(n))
	case int32:
		return FmtSats(int64(n))
	case int64:
		return FmtSats(n)
	case *int64:
		if n == nil {
			return zeroSats
		}
		return FmtSats(*n)
	case uint64:
		if n > math.MaxInt64 {
			return zeroSats
		}
		return FmtSats(int64(n))
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || math.IsNaN(n) {
			return zeroSats
		}
		return FmtSats(int64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return zeroSats
		}
		return FmtSats(i)
	default:
		return zeroSats
	}
}

// FmtSatsExact renders the full satoshi amount without switching to BTC.
func FmtSatsExact(sats int64) string {
	if sats < 0 {
		return zeroSats
	}
	return group(sats) + " sat"
}

func group(n int64) string {
	return humanize.FormatInteger(groupedFormat, int(n))
}

// FmtDate formats time in a locale-friendly short form.
func FmtDate(t time.Time, lang string) string {
	if t.IsZero() {
		return ""
	}
	switch strings.ToLower(lang) {
	case "ja":
		return t.Format("2006-01-02")
	default:
		return t.Format("02 Jan 2006")
	}
}

// FmtUnix formats a unix timestamp in seconds with FmtDate.
func FmtUnix(sec int64, lang string) string {
	if sec <= 0 {
		return ""
	}
	return FmtDate(time.Unix(sec, 0).UTC(), lang)
}

// ShortAddress keeps the first and last six characters of a long address.
func ShortAddress(addr string) string {
	r := []rune(addr)
	if len(r) <= 12 {
		return addr
	}
	return string(r[:6]) + "..." + string(r[len(r)-6:])
}
