package models

import (
	"errors"
	"fmt"
	"time"
)

const (
	MsgIngestionInProgress = "ingestion already in progress"
	MsgNoLogsIngested      = "no logs ingested"
	MsgAnalysisRunning     = "analysis already running"
)

type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindState      ErrorKind = "state"
	ErrorKindTransport  ErrorKind = "transport"
)

// ValidationError is bad input caught before anything is sent.
type ValidationError struct {
	Message string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StateError is a precondition violation such as a second in-flight request.
type StateError struct {
	Message string
}

func NewStateError(msg string) *StateError {
	return &StateError{Message: msg}
}

func (e *StateError) Error() string {
	return e.Message
}

// TransportError covers timeouts, connection failures, undecodable bodies and
// non-success statuses from the triage service.
type TransportError struct {
	Op         string
	StatusCode int
	Detail     string // server-provided "detail", if any
	Timeout    bool
	Err        error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return e.Message()
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message())
}

// Message is the generic description, without the operation prefix.
func (e *TransportError) Message() string {
	switch {
	case e.Timeout:
		return "request timed out"
	case e.StatusCode != 0 && e.Err == nil:
		return fmt.Sprintf("request failed with status code %d", e.StatusCode)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "request failed"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ErrorInfo is the last error held by a controller for display.
type ErrorInfo struct {
	Message string    `json:"message" yaml:"message"`
	Kind    ErrorKind `json:"kind" yaml:"kind"`
	At      time.Time `json:"at" yaml:"at"`
}

func NewErrorInfo(err error, fallback string) *ErrorInfo {
	return &ErrorInfo{
		Message: ErrorMessage(err, fallback),
		Kind:    KindOf(err),
		At:      time.Now(),
	}
}

// ErrorMessage picks the text shown to a user: the server's detail when the
// service sent one, then the error's own message, then fallback. Transport
// errors are described without their operation prefix; Error() keeps it for logs.
func ErrorMessage(err error, fallback string) string {
	var te *TransportError
	if errors.As(err, &te) {
		if te.Detail != "" {
			return te.Detail
		}
		if msg := te.Message(); msg != "" {
			return msg
		}
		return fallback
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}

func KindOf(err error) ErrorKind {
	var ve *ValidationError
	var se *StateError
	switch {
	case errors.As(err, &ve):
		return ErrorKindValidation
	case errors.As(err, &se):
		return ErrorKindState
	default:
		return ErrorKindTransport
	}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
