// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package token

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
)

var expiryPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([a-z]+)$`)

var expiryUnits = map[string]time.Duration{
	"ms": time.Millisecond, "msec": time.Millisecond, "msecs": time.Millisecond,
	"millisecond": time.Millisecond, "milliseconds": time.Millisecond,
	"s": time.Second, "sec": time.Second, "secs": time.Second,
	"second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute,
	"minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour,
	"hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
}

// ParseExpiry parses a token lifetime such as "10m", "1h30m", "7d",
// "2 days" or "600" (seconds). The result must be positive.
func ParseExpiry(s string) (time.Duration, error) {
	raw := s
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, invalidExpiry(raw, "expiry is empty")
	}

	var d time.Duration
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		d = time.Duration(secs) * time.Second
	} else if m := expiryPattern.FindStringSubmatch(s); m != nil && expiryUnits[m[2]] != 0 {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, invalidExpiry(raw, err.Error())
		}
		d = time.Duration(n * float64(expiryUnits[m[2]]))
	} else {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, invalidExpiry(raw, "unrecognized duration")
		}
		d = parsed
	}

	if d <= 0 {
		return 0, invalidExpiry(raw, "expiry must be positive")
	}
	return d, nil
}

func invalidExpiry(value, reason string) error {
	return oops.Code("EXPIRY_INVALID").With("value", value).Errorf("invalid expiry %q: %s", value, reason)
}
