package config

import (
	"strings"
	"time"
)

// Config wraps a map[string]any for type-safe value extraction.
// All accessor methods take a dotted path into nested sections and
// return the supplied default if the path is missing or the value
// cannot be converted to the requested type.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map.
// If data is nil, an empty Config is returned.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// lookup resolves a dotted path through nested maps.
func (c Config) lookup(path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = c.data
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Has reports whether the path resolves to any value.
func (c Config) Has(path string) bool {
	_, ok := c.lookup(path)
	return ok
}

// String returns the string value at path, or defaultVal if missing
// or not a string.
func (c Config) String(path, defaultVal string) string {
	v, ok := c.lookup(path)
	if !ok {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return s
	}
	return defaultVal
}

// Bool returns the boolean value at path, or defaultVal if missing or
// not a bool.
func (c Config) Bool(path string, defaultVal bool) bool {
	v, ok := c.lookup(path)
	if !ok {
		return defaultVal
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer value at path, or defaultVal if missing or
// not convertible.
//
// Accepts:
//   - int: used directly
//   - int64: converted to int
//   - float64: converted to int (only if no fractional part)
func (c Config) Int(path string, defaultVal int) int {
	v, ok := c.lookup(path)
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Duration returns the duration value at path, or defaultVal if
// missing or invalid.
//
// Accepts:
//   - string: parsed with time.ParseDuration ("30s", "5m")
//   - int, int64: interpreted as seconds
//   - float64: interpreted as seconds
//   - time.Duration: used directly
func (c Config) Duration(path string, defaultVal time.Duration) time.Duration {
	v, ok := c.lookup(path)
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		return time.Duration(val * float64(time.Second))
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case time.Duration:
		return val
	}
	return defaultVal
}
