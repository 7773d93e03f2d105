package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// GatewayError is a failed exchange with the completion service: transport
// error, non-2xx status, timeout, empty reply or unparseable reply body.
type GatewayError struct {
	Provider   string
	Op         string // "request", "status", "empty", "parse"
	StatusCode int    // HTTP status when the service answered
	Retryable  bool   // 429, 5xx and timeouts
	Raw        string // Reply text, when one was received
	Err        error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("%s gateway %s", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a provider that cannot be constructed, such as a
// missing credential. It is fatal at startup.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return "LLM configuration: " + e.Reason
	}
	return fmt.Sprintf("LLM configuration (%s): %s", e.Provider, e.Reason)
}

// IsRetryable reports whether err is a gateway failure worth retrying
func IsRetryable(err error) bool {
	var gerr *GatewayError
	if errors.As(err, &gerr) {
		return gerr.Retryable
	}
	return false
}

// statusRetryable returns true for rate limiting and server-side failures
func statusRetryable(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}

// requestError wraps a transport failure, marking timeouts retryable
func requestError(provider string, err error) *GatewayError {
	retryable := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		retryable = true
	}
	return &GatewayError{
		Provider:  provider,
		Op:        "request",
		Retryable: retryable,
		Err:       err,
	}
}

func statusError(provider string, status int, raw string, err error) *GatewayError {
	return &GatewayError{
		Provider:   provider,
		Op:         "status",
		StatusCode: status,
		Retryable:  statusRetryable(status),
		Raw:        raw,
		Err:        err,
	}
}
