package workflow

import (
	"strings"
	"time"
)

// RetryStrategy encapsulates the delay between step retry attempts.
type RetryStrategy interface {
	// SleepDuration returns how long to wait before the next retry attempt.
	// The retry index starts at 1 for the first retry.
	SleepDuration(retryIndex int, err error) time.Duration
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts() int
}

// LinearBackoffStrategy waits Base * retryIndex between attempts.
type LinearBackoffStrategy struct {
	Base     time.Duration
	Attempts int
}

// DefaultRetryStrategy matches the step retry policy: three attempts total
// with 1s, 2s linear backoff.
func DefaultRetryStrategy() LinearBackoffStrategy {
	return LinearBackoffStrategy{Base: time.Second, Attempts: 3}
}

func (s LinearBackoffStrategy) SleepDuration(retryIndex int, _ error) time.Duration {
	if retryIndex < 1 {
		retryIndex = 1
	}

	return s.Base * time.Duration(retryIndex)
}

func (s LinearBackoffStrategy) MaxAttempts() int {
	return s.Attempts
}

// nonRetryableMarkers flag errors that retrying cannot fix.
var nonRetryableMarkers = []string{"authentication", "permission", "validation", "not found"}

// IsNonRetryable reports whether a step error should propagate immediately
// instead of consuming retry attempts.
func IsNonRetryable(err error) bool {
	if err == nil {
		return false
	}

	message := strings.ToLower(err.Error())

	for _, marker := range nonRetryableMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}

	return false
}
