package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/MimeLyc/structured-doc-translator/pkg/log"
)

type Kind int

const (
	KindInternal Kind = iota
	KindConfig
	KindValidation
	KindUnsupportedFormat
	KindBackend
)

// Error is the error type surfaced by every pipeline stage.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

func Wrap(err error, kind Kind, message string) *Error {
	e := New(kind, message)
	e.Cause = err
	return e
}

func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("[%s] %s", e.Kind.Code(), e.Message)}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, "context: "+strings.Join(ctxParts, ", "))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Code returns the machine-readable code of the error kind.
func (e *Error) Code() string {
	return e.Kind.Code()
}

func (k Kind) Code() string {
	switch k {
	case KindConfig:
		return "CONFIG_ERROR"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindUnsupportedFormat:
		return "UNSUPPORTED_FILE_TYPE"
	case KindBackend:
		return "BACKEND_ERROR"
	default:
		return "SERVER_ERROR"
	}
}

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "Config"
	case KindValidation:
		return "Validation"
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindBackend:
		return "Backend"
	default:
		return "Internal"
	}
}

// HTTPStatus maps an error kind to the status code returned to clients.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindUnsupportedFormat:
		return http.StatusBadRequest
	case KindBackend:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Advice returns an operator hint for the error kind.
func (k Kind) Advice() string {
	switch k {
	case KindConfig:
		return "Check that the API key environment variable of the selected engine is set"
	case KindValidation:
		return "Check the uploaded file and the target language list"
	case KindUnsupportedFormat:
		return "Supported formats are srt, vtt, txt, csv, json and yaml"
	case KindBackend:
		return "Check network connectivity and the backend service status, or reduce the batch size"
	default:
		return "Review the detailed error information"
	}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// Log writes err and the advice of its kind to the global logger.
func Log(err error) {
	if err == nil {
		return
	}
	kind := KindOf(err)
	log.Error("Error detail: %v\n advice: %s", err, kind.Advice())
}

// SafeExecute runs fn and converts a panic into an internal error.
func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Newf(KindInternal, "runtime error: %v", r)
		}
	}()

	return fn()
}
