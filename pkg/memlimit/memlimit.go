// Package memlimit converts human-readable memory limits and probes the
// process's memory ceiling and usage for per-invocation budgets.
package memlimit

import (
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"runtime/metrics"
	"strconv"
	"strings"
)

// Unlimited is the ceiling used when no limit is configured. A fixed
// constant keeps the budget comparison well-defined.
const Unlimited int64 = 32 << 30

// DefaultFraction is the share of the ceiling an invocation may use.
const DefaultFraction = 0.9

var ErrInvalidSize = errors.New("jobs: invalid memory size")

// ParseBytes converts a size such as "128M", "2g" or "512k" to bytes.
// Suffixes are binary (k = 1024) and case-insensitive; anything after the
// leading integer other than the suffix is ignored. Results that overflow
// are clamped to math.MaxInt64 or math.MinInt64.
func ParseBytes(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	var mult int64 = 1
	switch {
	case strings.Contains(s[end:], "g"):
		mult = 1 << 30
	case strings.Contains(s[end:], "m"):
		mult = 1 << 20
	case strings.Contains(s[end:], "k"):
		mult = 1 << 10
	}
	if n > 0 && n > math.MaxInt64/mult {
		return math.MaxInt64, nil
	}
	if n < 0 && n < math.MinInt64/mult {
		return math.MinInt64, nil
	}
	return n * mult, nil
}

// Resolve turns a configured limit into bytes. An empty setting asks the
// runtime; "0", "-1" and other non-positive values mean unlimited.
func Resolve(setting string) (int64, error) {
	if strings.TrimSpace(setting) == "" {
		return Ceiling(), nil
	}
	n, err := ParseBytes(setting)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return Unlimited, nil
	}
	return n, nil
}

// Ceiling returns the runtime's soft memory limit (GOMEMLIMIT or
// debug.SetMemoryLimit), or Unlimited when none is set.
func Ceiling() int64 {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return Unlimited
	}
	return limit
}

const totalMemoryMetric = "/memory/classes/total:bytes"

// Usage returns the bytes of memory the Go runtime has mapped from the OS.
func Usage() uint64 {
	sample := []metrics.Sample{{Name: totalMemoryMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return sample[0].Value.Uint64()
}

// Budget decides whether memory usage has reached its share of a ceiling.
type Budget struct {
	// Limit is the ceiling in bytes.
	Limit int64
	// Fraction of Limit at which the budget is exhausted. Default: 0.9
	Fraction float64
	// Usage probes current usage. Default: Usage
	Usage func() uint64
}

// Threshold returns the byte count at which the budget is exhausted.
func (b Budget) Threshold() float64 {
	fraction := b.Fraction
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultFraction
	}
	limit := b.Limit
	if limit <= 0 {
		limit = Unlimited
	}
	return float64(limit) * fraction
}

// Exceeded reports whether current usage is at or above the threshold.
func (b Budget) Exceeded() bool {
	usage := b.Usage
	if usage == nil {
		usage = Usage
	}
	return float64(usage()) >= b.Threshold()
}
