package domain

import "time"

// CallKind distinguishes how an outbound URL is interpreted.
type CallKind string

const (
	// KindRPC is a named remote procedure invoked via the generic /rpc endpoint.
	KindRPC CallKind = "rpc"
	// KindFunction is a backend edge function invocation.
	KindFunction CallKind = "function"
	// KindREST is a plain resource read or write.
	KindREST CallKind = "rest"
)

// CallTrace is a lightweight record of a completed procedure or function call.
type CallTrace struct {
	Name     string        `json:"name"`
	Kind     CallKind      `json:"kind"`
	Status   int           `json:"status"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// RemoteError is the structured error body the backend returns on non-2xx.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AccessDeniedKind classifies an authorization failure.
type AccessDeniedKind string

const (
	DeniedMissingTenant AccessDeniedKind = "missing_tenant"
	DeniedPlanGated     AccessDeniedKind = "plan_gated"
	DeniedGeneric       AccessDeniedKind = "generic"
)
