package errutil

import "fmt"

type Detail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// BaseError carries a transport-level status alongside a stable domain code.
// The code is what API consumers key on; the status only decides the HTTP
// response class.
type BaseError struct {
	Status  CoreStatus `json:"-"`
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Details []Detail   `json:"details,omitempty"`
	Err     error      `json:"-"`
}

func (e BaseError) CoreStatus() CoreStatus {
	return e.Status
}

func (e BaseError) JSON() interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    e.Code,
			"message": e.messageWithErr(),
			"details": e.Details,
		},
	}
}

func (e BaseError) Unwrap() error {
	return e.Err
}

func (e BaseError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.messageWithErr())
}

func (e BaseError) messageWithErr() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

type Option func(*BaseError)

func WithDetails(details ...Detail) Option {
	return func(be *BaseError) { be.Details = details }
}

func WithErr(err error) Option {
	return func(be *BaseError) { be.Err = err }
}

func New(status CoreStatus, code, message string, opts ...Option) error {
	be := BaseError{Status: status, Code: code, Message: message}
	for _, opt := range opts {
		opt(&be)
	}
	return be
}

func NotFound(code, msg string, options ...Option) error {
	return New(StatusNotFound, code, msg, options...)
}

func Unauthorized(code, msg string, options ...Option) error {
	return New(StatusUnauthorized, code, msg, options...)
}

func Forbidden(code, msg string, options ...Option) error {
	return New(StatusForbidden, code, msg, options...)
}

func BadRequest(code, msg string, options ...Option) error {
	return New(StatusBadRequest, code, msg, options...)
}

func UnprocessableEntity(code, msg string, options ...Option) error {
	return New(StatusUnprocessableEntity, code, msg, options...)
}

func Conflict(code, msg string, options ...Option) error {
	return New(StatusConflict, code, msg, options...)
}

func Internal(code, msg string, options ...Option) error {
	return New(StatusInternal, code, msg, options...)
}
