package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses a duration string like "5m"; empty or invalid input yields fallback
func ParseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return fallback
	}
	return duration
}

// ParseValue turns a text cell into an int, a float64, or the trimmed string
func ParseValue(s string) interface{} {
	// Trim whitespace first
	s = strings.TrimSpace(s)

	// try int
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	// try float
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Numeric converts a record value to float64.
// Missing, nil, non-numeric, NaN and infinite values all become 0.
func Numeric(v interface{}) float64 {
	var f float64
	switch val := v.(type) {
	case nil:
		return 0
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		switch parsed := ParseValue(val).(type) {
		case int:
			f = float64(parsed)
		case float64:
			f = parsed
		default:
			return 0
		}
	case bool:
		return 0
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case float64:
		f = val
	case float32:
		f = float64(val)
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Float64 {
			f = rv.Convert(reflect.TypeOf(float64(0))).Float()
		} else {
			return 0
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Text renders a record value for display, using fallback for missing values
func Text(v interface{}, fallback string) string {
	switch val := v.(type) {
	case nil:
		return fallback
	case string:
		if val == "" {
			return fallback
		}
		return val
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
