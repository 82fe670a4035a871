package rpc

import (
	"fmt"
	"strings"
)

// ErrorKind identifies the failure mode of an outbound call.
type ErrorKind string

const (
	KindCallerCancelled ErrorKind = "caller_cancelled"
	KindTimeout         ErrorKind = "timeout"
	KindTransport       ErrorKind = "transport"
	KindClientError     ErrorKind = "http_client_error"
	KindThrottled       ErrorKind = "http_throttled"
	KindServerError     ErrorKind = "http_server_error"
	KindAuthDenied      ErrorKind = "http_auth_denied"
)

// CallError is the failure outcome of one outbound call. Timeouts,
// transport failures and HTTP error responses are distinct kinds so
// callers can branch on them.
type CallError struct {
	Kind    ErrorKind
	Status  int
	Code    string
	Message string
	Op      string
	Route   string
	Err     error
}

func (e *CallError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("call %s: %s (http %d %s: %s)",
			e.Op, e.Kind, e.Status, e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("call %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("call %s: %s", e.Op, e.Kind)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// kindForStatus maps an HTTP error status to its error kind.
func kindForStatus(status int) ErrorKind {
	switch {
	case status == 408:
		return KindTimeout
	case status == 429:
		return KindThrottled
	case status == 403:
		return KindAuthDenied
	case status >= 500:
		return KindServerError
	default:
		return KindClientError
	}
}

// IsUnknownProcedure reports whether the backend rejected the call
// because the named procedure does not exist in its schema. Keyed on the
// backend's known signals (schema-cache miss code, undefined-function
// SQLSTATE, or a 404 on the rpc route) so the compatibility fallback can
// switch to the older call shape.
func IsUnknownProcedure(err error) bool {
	ce, ok := AsCallError(err)
	if !ok {
		return false
	}
	if ce.Code == "PGRST202" || ce.Code == "42883" {
		return true
	}
	if ce.Status == 404 && strings.Contains(ce.Route, "/rpc/") {
		return true
	}
	return strings.Contains(ce.Message, "function") &&
		strings.Contains(ce.Message, "does not exist")
}
