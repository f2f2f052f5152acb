// Package dateutil provides best-effort parsing for upstream date and
// datetime fields. Malformed values are a data-quality issue, not an error:
// they are logged once and normalized to nil so an import never aborts on a
// bad date.
package dateutil

import (
	"strings"
	"time"

	"github.com/holocron-dev/holocron/internal/logger"
)

const dateLayout = "2006-01-02"

// datetimeLayouts covers the ISO 8601 forms the upstream serves: with a UTC
// offset, without one, and a bare date. Fractional seconds are optional in
// all of them.
var datetimeLayouts = []string{
	"2006-01-02T15:04:05.999999-07:00",
	"2006-01-02T15:04:05.999999",
	dateLayout,
}

// ParseDate parses an ISO 8601 date (YYYY-MM-DD). Empty input returns nil
// silently; a non-empty value that fails to parse is logged and returns nil.
func ParseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		logger.Warnw("invalid date format, normalizing to null", "value", s, "error", err)
		return nil
	}
	return &t
}

// ParseDateTime parses an ISO 8601 datetime. A trailing 'Z' is treated as
// UTC and the offset may be absent entirely. Empty input returns nil
// silently; a non-empty value that fails to parse is logged and returns nil.
func ParseDateTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	normalized := s
	if strings.HasSuffix(normalized, "Z") {
		normalized = strings.TrimSuffix(normalized, "Z") + "+00:00"
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return &t
		}
	}
	logger.Warnw("invalid datetime format, normalizing to null", "value", s)
	return nil
}
