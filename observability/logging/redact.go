package logging

import (
	"log/slog"
	"slices"
	"strings"
)

// RedactedValue replaces identity-bearing values in logs.
const RedactedValue = "[REDACTED]"

// allowlist holds the log keys that never carry a holder identity. It is kept
// sorted.
var allowlist = []string{
	"amount",
	"command",
	"component",
	"env",
	"error",
	"factory",
	"ledger",
	"message",
	"operator",
	"reason",
	"registry",
	"service",
	"severity",
	"timestamp",
	"type",
}

// IsAllowlisted reports whether key may be logged verbatim. Matching ignores
// case and surrounding space.
func IsAllowlisted(key string) bool {
	_, found := slices.BinarySearch(allowlist, strings.ToLower(strings.TrimSpace(key)))
	return found
}

// RedactionAllowlist returns a copy of the allowlisted keys in sorted order.
func RedactionAllowlist() []string {
	return slices.Clone(allowlist)
}

// MaskValue redacts any non-blank value. Blank values pass through so empty
// fields stay recognisable.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField builds a slog attribute for key, redacting value unless key is
// allowlisted.
func MaskField(key, value string) slog.Attr {
	if IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, MaskValue(value))
}
