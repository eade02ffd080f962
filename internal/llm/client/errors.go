package llmclient

import (
	"errors"
	"fmt"
)

// NetworkError is a transport failure: the request never got a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Op == "" {
		return "network: " + e.Err.Error()
	}
	return fmt.Sprintf("network: %s: %v", e.Op, e.Err)
}
func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError is a non-success response carrying the server's message.
type ServiceError struct {
	Status  int
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("service: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("service: %d: %s", e.Status, e.Message)
}

// ParseError means a structured response did not decode or did not match
// the requested schema after one fence strip.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string { return "parse: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

func IsNetwork(err error) bool {
	var e *NetworkError
	return errors.As(err, &e)
}

func IsService(err error) bool {
	var e *ServiceError
	return errors.As(err, &e)
}

func IsParse(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}

// Retryable reports whether re-invoking the same call may succeed. Nothing in
// this package retries on its own; callers decide whether to offer it.
func Retryable(err error) bool {
	return IsNetwork(err) || IsService(err) || IsParse(err)
}
