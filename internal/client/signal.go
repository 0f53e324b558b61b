package client

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Placeholder is shown in place of a missing signal reading.
const Placeholder = "—"

var signalFields = []string{FieldSignal, FieldRSSI, FieldSignalDBm}

var (
	decimalPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	radixPattern   = regexp.MustCompile(`^0([xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`)
)

// Reading is a signal strength in dBm. A Reading with Valid=false is the
// absence marker, distinct from any numeric value including zero.
type Reading struct {
	Value float64
	Valid bool
}

func Absent() Reading {
	return Reading{}
}

// DBm returns a valid reading for finite values and the absence marker
// otherwise.
func DBm(value float64) Reading {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Reading{}
	}
	return Reading{Value: value, Valid: true}
}

type Band int

const (
	BandUnknown Band = iota
	BandStrong
	BandGood
	BandWeak
	BandPoor
)

// Bands lists every band; exactly one is active on a card at a time.
var Bands = []Band{BandUnknown, BandStrong, BandGood, BandWeak, BandPoor}

func (b Band) String() string {
	switch b {
	case BandStrong:
		return "strong"
	case BandGood:
		return "good"
	case BandWeak:
		return "weak"
	case BandPoor:
		return "poor"
	default:
		return "unknown"
	}
}

// Class is the style class name for the band, e.g. "signal-weak".
func (b Band) Class() string {
	return "signal-" + b.String()
}

// Interpret picks the first of signal, rssi and signalDbm that is present and
// not null, then coerces it to a number. The chosen field is final even when
// it does not coerce; later fields are not consulted.
func Interpret(rec Record) Reading {
	for _, name := range signalFields {
		value, ok := rec.Lookup(name)
		if !ok {
			continue
		}
		return DBm(coerceNumber(value))
	}
	return Absent()
}

func Classify(r Reading) Band {
	switch {
	case !r.Valid:
		return BandUnknown
	case r.Value >= -50:
		return BandStrong
	case r.Value >= -65:
		return BandGood
	case r.Value >= -80:
		return BandWeak
	default:
		return BandPoor
	}
}

func FormatReading(r Reading) string {
	if !r.Valid {
		return Placeholder
	}
	return formatNumber(r.Value) + " dBm"
}

func coerceNumber(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case json.Number:
		return parseNumericText(v.String())
	case string:
		return parseNumericText(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case []any:
		switch len(v) {
		case 0:
			return 0
		case 1:
			return coerceListItem(v[0])
		default:
			return math.NaN()
		}
	default:
		return math.NaN()
	}
}

// coerceListItem handles a single-element list, which coerces through the
// text form of its only element.
func coerceListItem(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case bool, map[string]any:
		return math.NaN()
	default:
		return coerceNumber(v)
	}
}

// parseNumericText accepts decimal literals and 0x/0o/0b integers. Blank text
// coerces to zero.
func parseNumericText(raw string) float64 {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0
	}
	switch text {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if decimalPattern.MatchString(text) {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	if radixPattern.MatchString(text) {
		base := 16
		switch text[1] {
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		n, err := strconv.ParseUint(text[2:], base, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	return math.NaN()
}

func formatNumber(value float64) string {
	if value == 0 {
		return "0"
	}
	abs := math.Abs(value)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	return strconv.FormatFloat(value, 'g', -1, 64)
}
