package rpc

import (
	"context"
	"errors"
	"net"
)

// Outcome determines how a failed call may be handled.
type Outcome int

const (
	// Terminal failures indicate the request itself is invalid;
	// resubmission would fail again or mask a real user-facing error.
	Terminal Outcome = iota
	// Retryable failures are likely to succeed on resubmission without
	// duplicating effects, given the target is idempotent by entity id.
	Retryable
)

func (o Outcome) String() string {
	if o == Retryable {
		return "retryable"
	}
	return "terminal"
}

// AsCallError unwraps err to the CallError produced by the interceptor.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Classify decides whether a failed call is worth retrying.
//
// Retryable: connection-level failures, timeouts (including 408), 429,
// and 5xx. Terminal: every other HTTP error and caller cancellation.
// Total over the whole taxonomy: every error maps to exactly one outcome.
func Classify(err error) Outcome {
	if ce, ok := AsCallError(err); ok {
		switch ce.Kind {
		case KindTimeout, KindTransport, KindThrottled, KindServerError:
			return Retryable
		default:
			return Terminal
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Retryable
	}
	if errors.Is(err, context.Canceled) {
		return Terminal
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Retryable
	}

	return Terminal
}
