package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log lines.
const RedactedValue = "[REDACTED]"

// Keys that are always safe to log verbatim. Addresses on the ledger are
// public, so they are listed here alongside the envelope fields.
var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"error":     {},
	"method":    {},
	"outcome":   {},
	"signer":    {},
	"nonce":     {},
	"component": {},
}

// IsAllowlisted reports whether key may be logged without masking.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField returns an attribute whose value is masked unless key is
// allowlisted. Empty values pass through untouched.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
