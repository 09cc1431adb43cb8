package process

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Options is the named-option map a unit is constructed with. Keys are
// implementation specific; lookups accept several spellings so config
// files can use either PascalCase or snake_case.
type Options map[string]any

// String returns the first non-empty string value among keys.
func (o Options) String(keys ...string) (string, bool) {
	for _, key := range keys {
		value, ok := o[key]
		if !ok || value == nil {
			continue
		}
		text := strings.TrimSpace(fmt.Sprint(value))
		if text != "" {
			return text, true
		}
	}
	return "", false
}

// Int returns the first integer value among keys.
func (o Options) Int(keys ...string) (int, bool, error) {
	for _, key := range keys {
		value, ok := o[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case int:
			return v, true, nil
		case int64:
			return int(v), true, nil
		case float64:
			return int(v), true, nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return 0, true, fmt.Errorf("option %s: %w", key, err)
			}
			return n, true, nil
		default:
			return 0, true, fmt.Errorf("option %s: unsupported type %T", key, value)
		}
	}
	return 0, false, nil
}

// Bool returns the first boolean value among keys.
func (o Options) Bool(keys ...string) (bool, bool, error) {
	for _, key := range keys {
		value, ok := o[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case bool:
			return v, true, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return false, true, fmt.Errorf("option %s: %w", key, err)
			}
			return b, true, nil
		default:
			return false, true, fmt.Errorf("option %s: unsupported type %T", key, value)
		}
	}
	return false, false, nil
}

// Timeout reads a positive seconds value from timeout_seconds/TimeoutSeconds.
func (o Options) Timeout() (time.Duration, error) {
	seconds, ok, err := o.Int("timeout_seconds", "TimeoutSeconds")
	if err != nil || !ok {
		return 0, err
	}
	if seconds < 0 {
		return 0, fmt.Errorf("option timeout_seconds: must not be negative")
	}
	return time.Duration(seconds) * time.Second, nil
}
