// Package apperrors содержит таксономию ошибок control plane.
// Каждая ошибка несёт стабильный Kind, который контроллеры отдают клиенту.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindAuthorization     Kind = "authorization_error"
	KindUnauthenticated   Kind = "unauthenticated"
	KindNotFound          Kind = "not_found"
	KindExpiredCredential Kind = "expired_credential"
	KindInvalidState      Kind = "invalid_state"
	KindValidation        Kind = "validation_error"
	KindInternal          Kind = "internal_error"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает только Kind, поэтому errors.Is(err, ErrNotFound) работает
// для любой ошибки этого вида независимо от текста.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrAuthorization     = &Error{Kind: KindAuthorization}
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrExpiredCredential = &Error{Kind: KindExpiredCredential}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrValidation        = &Error{Kind: KindValidation}
)

func newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Authorization(format string, args ...interface{}) error {
	return newf(KindAuthorization, format, args...)
}

func Unauthenticated(format string, args ...interface{}) error {
	return newf(KindUnauthenticated, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return newf(KindNotFound, format, args...)
}

func ExpiredCredential(format string, args ...interface{}) error {
	return newf(KindExpiredCredential, format, args...)
}

func InvalidState(format string, args ...interface{}) error {
	return newf(KindInvalidState, format, args...)
}

func Validation(format string, args ...interface{}) error {
	return newf(KindValidation, format, args...)
}

// Wrap прикрепляет Kind к чужой ошибке, сохраняя её в цепочке.
func Wrap(kind Kind, err error, message string) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf возвращает Kind первой ошибки apperrors в цепочке или KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
