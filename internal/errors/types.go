package errors

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the network core.
type Kind string

const (
	// KindTransport means no response was obtained from the server.
	KindTransport Kind = "transport"
	// KindQueued means a mutating request hit a transport failure and was stored for replay.
	KindQueued Kind = "queued"
	// KindUnauthorized is terminal for the current session.
	KindUnauthorized Kind = "unauthorized"
	// KindApplication covers every other non-2xx response.
	KindApplication Kind = "application"
	// KindConflict is a 409, e.g. a duplicate file upload.
	KindConflict Kind = "conflict"
	// KindDecode means a 2xx body was not valid JSON.
	KindDecode Kind = "decode"
	// KindUpload means a file reference could not be materialized.
	KindUpload Kind = "upload"
)

// QueuedMessage is shown to users when a mutation was stored for later delivery.
const QueuedMessage = "You're offline. The change was saved and will be sent when the connection is back."

// APIError is the error type returned by the request pipeline.
type APIError struct {
	Kind       Kind
	HTTPStatus int
	Code       string
	Message    string
	// Detail is the human-readable text extracted from the response body, if any.
	Detail string
	// Body is the raw response body for non-2xx responses.
	Body []byte
	Err  error
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.Detail != "" && e.Detail != e.Message {
		msg = msg + ": " + e.Detail
	}
	if e.HTTPStatus > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.HTTPStatus)
	}
	if e.Err != nil && e.Detail == "" {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// New builds an APIError of the given kind.
func New(kind Kind, httpStatus int, code, message string) *APIError {
	return &APIError{Kind: kind, HTTPStatus: httpStatus, Code: code, Message: message}
}

// WithDetail sets the human-readable detail.
func (e *APIError) WithDetail(detail string) *APIError {
	e.Detail = detail
	return e
}

// WithCause attaches the underlying error.
func (e *APIError) WithCause(err error) *APIError {
	e.Err = err
	return e
}

// Queued wraps a transport failure for a mutation that was stored offline.
func Queued(cause error) *APIError {
	return New(KindQueued, 0, "queued", QueuedMessage).WithCause(cause)
}

// Unauthorized builds the terminal session error; body is the server's last 401 payload.
func Unauthorized(body []byte) *APIError {
	e := New(KindUnauthorized, 401, "unauthorized", "Session expired, please sign in again")
	e.Body = body
	e.Detail = extractDetail(body)
	return e
}

// Decode reports a malformed 2xx body.
func Decode(status int, cause error) *APIError {
	return New(KindDecode, status, "decode_error", "Unexpected response from server").WithCause(cause)
}

// Upload reports a file reference that could not be turned into bytes.
func Upload(cause error) *APIError {
	return New(KindUpload, 0, "upload_unresolved", "Could not read the selected file").WithCause(cause)
}

// KindOf returns the Kind of err, or "" when err is not an APIError.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func IsQueued(err error) bool       { return KindOf(err) == KindQueued }
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
func IsTransport(err error) bool    { return KindOf(err) == KindTransport }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus
	}
	return 0
}

// UserMessage renders err for display in the application shell.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Kind {
	case KindQueued:
		return QueuedMessage
	case KindApplication, KindConflict, KindUnauthorized:
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
	}
	return apiErr.Message
}
