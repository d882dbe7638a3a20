package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrMaxRetriesExceeded is carried by a TransportError when the retry
	// loop ends without any attempt result.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrDecode marks a response body that is not a JSON envelope.
	ErrDecode = errors.New("undecodable response body")
)

// ErrorClass represents a classification of failed attempts.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses and other non-2xx statuses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents connection failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents bodies that are not JSON.
	ErrorClassDecode ErrorClass = "decode"
)

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected http status: %s", e.Status)
	}
	return fmt.Sprintf("unexpected http status: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// TransportError is returned once every attempt of a call has failed.
type TransportError struct {
	Attempts   int
	ErrorClass ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("explorer transport error: %v", e.Err)
	}
	return fmt.Sprintf("explorer %s error after %d attempts: %v", e.ErrorClass, e.Attempts, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is an envelope with status "0" surfaced as an error.
// Only returned where a caller opted into strict handling.
type APIError struct {
	Action  string
	Message string
	Result  json.RawMessage
}

// Error implements the error interface.
func (e *APIError) Error() string {
	detail := e.Message
	if len(e.Result) > 0 && string(e.Result) != "null" {
		detail = fmt.Sprintf("%s: %s", e.Message, string(e.Result))
	}
	if e.Action != "" {
		return fmt.Sprintf("explorer api error (%s): %s", e.Action, detail)
	}
	return fmt.Sprintf("explorer api error: %s", detail)
}

// NewAPIError builds an APIError from a failed envelope.
func NewAPIError(action string, env *Envelope) *APIError {
	return &APIError{
		Action:  action,
		Message: env.Message,
		Result:  env.Result,
	}
}

// classifyError categorizes a failed attempt for observability.
func classifyError(err error) ErrorClass {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		if statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
			return ErrorClassClient
		}
		return ErrorClassServer
	case errors.Is(err, ErrDecode):
		return ErrorClassDecode
	default:
		return ErrorClassNetwork
	}
}
