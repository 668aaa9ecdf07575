package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxBackendRetries bounds backend.retries; each retry waits up to the
// generator's backoff cap.
const MaxBackendRetries = 10

// Resolved holds the typed values of the string-valued duration and size
// settings.
type Resolved struct {
	MaxBodySize     int64
	ShutdownTimeout time.Duration
	Backoff         time.Duration
	CallTimeout     time.Duration
	ConnMaxLifetime time.Duration
	AcquireTimeout  time.Duration
	QueryTimeout    time.Duration
	TokenTTL        time.Duration
}

// Resolve parses the durations and sizes in c and checks the retry bound. Empty values resolve to zero,
// which the consuming components treat as "use the default".
func (c *YAMLConfig) Resolve() (Resolved, error) {
	var r Resolved
	var err error

	if r.MaxBodySize, err = ParseSize(c.Server.MaxBodySize); err != nil {
		return r, fmt.Errorf("server.max_body_size: %w", err)
	}
	if c.Backend.Retries < 0 || c.Backend.Retries > MaxBackendRetries {
		return r, fmt.Errorf("backend.retries: must be between 0 and %d, got %d", MaxBackendRetries, c.Backend.Retries)
	}

	durations := []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"server.shutdown_timeout", c.Server.ShutdownTimeout, &r.ShutdownTimeout},
		{"backend.backoff", c.Backend.Backoff, &r.Backoff},
		{"backend.timeout", c.Backend.Timeout, &r.CallTimeout},
		{"database.conn_max_lifetime", c.Database.ConnMaxLifetime, &r.ConnMaxLifetime},
		{"database.acquire_timeout", c.Database.AcquireTimeout, &r.AcquireTimeout},
		{"database.query_timeout", c.Database.QueryTimeout, &r.QueryTimeout},
		{"auth.token_ttl", c.Auth.TokenTTL, &r.TokenTTL},
	}
	for _, d := range durations {
		if d.val == "" {
			continue
		}
		v, err := time.ParseDuration(d.val)
		if err != nil {
			return r, fmt.Errorf("%s: %w", d.key, err)
		}
		if v < 0 {
			return r, fmt.Errorf("%s: must not be negative", d.key)
		}
		*d.dst = v
	}
	return r, nil
}

// ParseSize parses a byte size such as "512", "64KB" or "1MB". Units are
// powers of 1024.
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}

	mult := int64(1)
	for _, u := range []struct {
		suffix string
		mult   int64
	}{
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	} {
		if strings.HasSuffix(s, u.suffix) {
			mult = u.mult
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}
