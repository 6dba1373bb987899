package offer

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var nonAmountRegex = regexp.MustCompile(`[^\d.,\-]`)

// parsePercent reads a discount percentage. Signs are ignored so Steam's
// "-75%" and a plain 75 mean the same thing. The bool is false when the value is absent.
func parsePercent(v interface{}) (float64, bool, error) {
	f, ok, err := toFloat(v, func(s string) (float64, bool, error) {
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(s, "%")
		s = strings.TrimSpace(s)
		s = strings.TrimLeft(s, "+-")
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err != nil {
			return 0, false, fmt.Errorf("malformed percent %q", s)
		}
		return f, true, nil
	})
	if err != nil || !ok {
		return 0, ok, err
	}

	f = math.Abs(f)
	if math.IsNaN(f) || math.IsInf(f, 0) || f > 100 {
		return 0, false, fmt.Errorf("percent %v out of range", v)
	}
	return f, true, nil
}

// parseAmount reads a price. Currency symbols and thousands separators are
// stripped, a lone decimal comma is honoured and "free" means zero.
func parseAmount(v interface{}) (float64, bool, error) {
	f, ok, err := toFloat(v, func(s string) (float64, bool, error) {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false, nil
		}
		if strings.EqualFold(s, "free") || strings.EqualFold(s, "free to play") {
			return 0, true, nil
		}

		cleaned := nonAmountRegex.ReplaceAllString(s, "")
		if cleaned == "" {
			return 0, false, fmt.Errorf("malformed amount %q", s)
		}
		cleaned = normalizeSeparators(cleaned)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false, fmt.Errorf("malformed amount %q", s)
		}
		return f, true, nil
	})
	if err != nil || !ok {
		return 0, ok, err
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("amount %v out of range", v)
	}
	return f, true, nil
}

// normalizeSeparators turns "1.299,99", "1,299.99" and "4,99" into a ParseFloat-friendly form
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if len(s)-lastComma-1 == 2 && strings.Count(s, ",") == 1 {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	default:
		return s
	}
}

func toFloat(v interface{}, fromString func(string) (float64, bool, error)) (float64, bool, error) {
	switch n := v.(type) {
	case nil:
		return 0, false, nil
	case string:
		return fromString(n)
	case json.Number:
		return fromString(n.String())
	case int:
		return float64(n), true, nil
	case int32:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case uint:
		return float64(n), true, nil
	case uint32:
		return float64(n), true, nil
	case uint64:
		return float64(n), true, nil
	case float32:
		return float64(n), true, nil
	case float64:
		return n, true, nil
	case *int:
		if n == nil {
			return 0, false, nil
		}
		return float64(*n), true, nil
	case *float64:
		if n == nil {
			return 0, false, nil
		}
		return *n, true, nil
	default:
		return 0, false, fmt.Errorf("unsupported numeric type %T", v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime reads a promotion end. Unparseable input is treated as absent.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
