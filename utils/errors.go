package utils

import (
	"errors"
	"net/http"
)

// CustomError digunakan untuk error dengan status code yang spesifik
type CustomError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *CustomError) Error() string {
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError Fungsi helper untuk membuat CustomError
func NewCustomError(statusCode int, message string) *CustomError {
	return &CustomError{StatusCode: statusCode, Message: message}
}

// WrapCustomError attaches an HTTP status to a domain error.
func WrapCustomError(statusCode int, message string, err error) *CustomError {
	return &CustomError{StatusCode: statusCode, Message: message, Err: err}
}

var (
	ErrItemNotFound       = errors.New("menu item not found")
	ErrLineNotFound       = errors.New("order line not found")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrCallNotFound       = errors.New("call not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrInvalidToken       = errors.New("invalid payment token")
	ErrTokenExpired       = errors.New("payment token expired")
	ErrUnsupported        = errors.New("operation not supported by engine")
	ErrCodeMismatch       = errors.New("verification code mismatch")
	ErrCodeNotFound       = errors.New("verification code not found or expired")
)

// StatusFor maps a domain error to the HTTP status the API answers with.
func StatusFor(err error) int {
	var ce *CustomError
	switch {
	case errors.As(err, &ce):
		return ce.StatusCode
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrLineNotFound),
		errors.Is(err, ErrCallNotFound), errors.Is(err, ErrRestaurantNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTokenExpired):
		return http.StatusGone
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrCodeMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidQuantity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnsupported):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
