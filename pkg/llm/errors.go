package llm

import (
	"context"
	"errors"
	"net"
	"strings"
)

// transientMarkers are substrings that identify retriable provider
// failures across the supported providers' error strings.
var transientMarkers = []string{
	"rate limit",
	"rate_limit",
	"429",
	"too many requests",
	"overloaded",
	"503",
	"service unavailable",
	"502",
	"bad gateway",
	"timeout",
	"timed out",
	"connection reset",
	"temporarily",
}

// IsTransient reports whether err is a retriable provider failure such as
// rate limiting or a timeout. Transient errors are re-raised from a turn
// so the task queue can retry with backoff; everything else is terminal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
