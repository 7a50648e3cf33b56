package wallet

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrTimeout reports that a single attempt exceeded the configured
	// per-attempt timeout. Timeouts are terminal, not retried.
	ErrTimeout = errors.New("relayer request timed out")

	// ErrUnrecognizedResponse reports a successful relayer settle whose value
	// could not be mapped to a transaction signature. Deterministic for a
	// given relayer version, so never retried.
	ErrUnrecognizedResponse = errors.New("could not extract transaction signature from relayer response")
)

// ThrottledError is returned when every allowed attempt was rejected with a
// rate-limit classified error. It names the last underlying cause.
type ThrottledError struct {
	Attempts int
	Cause    error
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("relayer throttled after %d attempts, retry later: %v", e.Attempts, e.Cause)
}

func (e *ThrottledError) Unwrap() error {
	return e.Cause
}

// rateLimitMarkers are matched case-insensitively against error messages to
// classify a rejection as transient throttling.
var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"too many requests",
	"throttl",
}

// isRateLimited classifies err as a transient rate-limit rejection.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
