package common

import (
	"errors"
	"net/http"
)

// Sentinel errors for the geospatial engine. Handlers map these to HTTP
// statuses through AppError; nothing below the HTTP layer writes a status.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrBadRequest          = errors.New("bad request")
	ErrInternalServer      = errors.New("internal server error")
	ErrValidation          = errors.New("validation error")
	ErrUnavailableRegion   = errors.New("region graph unavailable")
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")
	ErrRouteUnavailable    = errors.New("no route available")
	ErrDisconnected        = errors.New("locations are disconnected")
	ErrInconsistentPDP     = errors.New("pickup/delivery pairing inconsistent")
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewNotFoundError(message string, err error) *AppError {
	if err == nil {
		err = ErrNotFound
	}
	return &AppError{
		Code:    http.StatusNotFound,
		Message: message,
		Err:     err,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Message: message,
		Err:     ErrUnauthorized,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    http.StatusForbidden,
		Message: message,
		Err:     ErrForbidden,
	}
}

func NewBadRequestError(message string, err error) *AppError {
	if err == nil {
		err = ErrBadRequest
	}
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Err:     ErrValidation,
	}
}

func NewInternalError(message string, err error) *AppError {
	if err == nil {
		err = ErrInternalServer
	}
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Err:     err,
	}
}

// NewUnavailableRegionError signals that the graph cache could not produce a
// graph for the requested region.
func NewUnavailableRegionError(message string, err error) *AppError {
	if err == nil {
		err = ErrUnavailableRegion
	}
	return &AppError{
		Code:    http.StatusServiceUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewUpstreamUnavailableError signals a failed fetch from the OSM provider or
// a routing upstream after retries were exhausted.
func NewUpstreamUnavailableError(message string, err error) *AppError {
	if err == nil {
		err = ErrUpstreamUnavailable
	}
	return &AppError{
		Code:    http.StatusBadGateway,
		Message: message,
		Err:     err,
	}
}

func NewRouteUnavailableError(message string, err error) *AppError {
	if err == nil {
		err = ErrRouteUnavailable
	}
	return &AppError{
		Code:    http.StatusNotFound,
		Message: message,
		Err:     err,
	}
}

// NewDisconnectedError signals that every off-diagonal matrix entry was
// unreachable, so no route ordering is meaningful.
func NewDisconnectedError(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Message: message,
		Err:     ErrDisconnected,
	}
}

func NewInconsistentPDPError(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Message: message,
		Err:     ErrInconsistentPDP,
	}
}
