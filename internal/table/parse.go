package table

// parse.go reads typed cells out of messy user text:
//   - Multiple date formats (US, EU, ISO, etc.)
//   - Currency symbols and thousand separators in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// now is replaced in tests that pin the two-digit year pivot.
var now = time.Now

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
	timestampLayouts = []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04",
		"1/2/2006 15:04:05", "1/2/2006 15:04",
	}
)

// ParseNumber reads a number, tolerating currency symbols, thousands
// separators and accounting negatives "(123.45)".
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt reads an integer. Integral values written as decimals ("12.0")
// are accepted; fractional values are not.
func ParseInt(s string) (int64, bool) {
	if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return n, true
	}
	f, ok := ParseNumber(s)
	if !ok {
		return 0, false
	}
	return FloatToInt(f)
}

// FloatToInt converts f when it is integral and inside the int64 range.
// 2^63 itself is out of range even though MaxInt64 rounds to it.
func FloatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f >= 1<<63 || f < -(1<<63) {
		return 0, false
	}
	return int64(f), true
}

// ParseBool accepts true/false, yes/no, t/f, y/n and 1/0 in any case.
func ParseBool(s string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// ParseTime tries four-digit-year dates, then two-digit-year dates with
// pivot adjustment, then timestamp layouts.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CleanCell removes common CSV artifacts from a header or cell:
// surrounding whitespace, the Excel formula prefix (="...") and quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}

// Coerce converts an arbitrary value (a cell of any kind, or a literal from
// JSON or YAML) to the canonical cell representation for kind.
func Coerce(kind Kind, v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	if n := Normalize(kind, v); n != nil {
		return n, true
	}
	text := Format(v)
	switch x := v.(type) {
	case int:
		text = strconv.Itoa(x)
	case float32:
		text = strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	switch kind {
	case KindInteger:
		if b, ok := v.(bool); ok {
			if b {
				return int64(1), true
			}
			return int64(0), true
		}
		if n, ok := ParseInt(text); ok {
			return n, true
		}
	case KindFloat:
		if f, ok := AsFloat(v); ok {
			return f, true
		}
		if f, ok := ParseNumber(text); ok {
			return f, true
		}
	case KindText, KindCategorical:
		return text, true
	case KindBoolean:
		if b, ok := ParseBool(text); ok {
			return b, true
		}
	case KindDateTime:
		if t, ok := ParseTime(text); ok {
			return t, true
		}
	}
	return nil, false
}

// boolWords are the spellings inference accepts; 0/1 columns stay integer.
var boolWords = map[string]bool{"true": true, "false": false, "yes": true, "no": false}

// Infer builds a column from raw text cells. Blank cells are null. The
// first kind that fits every non-null cell wins, in the order boolean,
// integer, float, datetime; otherwise the column is text.
func Infer(name string, raw []string) *Column {
	values := make([]any, len(raw))
	nonNull := 0
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			nonNull++
		}
	}
	if nonNull == 0 {
		return &Column{Name: name, Kind: KindText, Values: values}
	}

	tryKind := func(parse func(string) (any, bool)) bool {
		for i, s := range raw {
			if strings.TrimSpace(s) == "" {
				values[i] = nil
				continue
			}
			v, ok := parse(s)
			if !ok {
				return false
			}
			values[i] = v
		}
		return true
	}

	parsers := []struct {
		kind  Kind
		parse func(string) (any, bool)
	}{
		{KindBoolean, func(s string) (any, bool) {
			b, ok := boolWords[strings.ToLower(strings.TrimSpace(s))]
			return b, ok
		}},
		{KindInteger, func(s string) (any, bool) {
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			return n, err == nil
		}},
		{KindFloat, func(s string) (any, bool) {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
		}},
		{KindDateTime, func(s string) (any, bool) {
			t, ok := ParseTime(s)
			return t, ok
		}},
	}
	for _, p := range parsers {
		if tryKind(p.parse) {
			return &Column{Name: name, Kind: p.kind, Values: values}
		}
	}

	for i, s := range raw {
		if strings.TrimSpace(s) == "" {
			values[i] = nil
		} else {
			values[i] = s
		}
	}
	return &Column{Name: name, Kind: KindText, Values: values}
}
