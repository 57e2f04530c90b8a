package relay

import "fmt"

// UpstreamError means the upstream answered with a non-2xx status.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Message)
}

// TimeoutError means the call was aborted by the relay timeout or by the
// caller going away before the upstream answered.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string { return "upstream request timed out: " + e.Err.Error() }

func (e *TimeoutError) Unwrap() error { return e.Err }

// ConnectivityError means the upstream could not be reached at all.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string { return "upstream unreachable: " + e.Err.Error() }

func (e *ConnectivityError) Unwrap() error { return e.Err }

// ConfigurationError means the relay is not configured to reach an upstream.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return e.Message }

// MalformedResponseError means a 2xx upstream body did not have the expected shape.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return "upstream returned a malformed response: " + e.Err.Error()
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
