package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// checkout domain
	CodeEmptyCart               Code = "EMPTY_CART"
	CodeInvalidPromoCode        Code = "INVALID_PROMO_CODE"
	CodePromoMinimumNotMet      Code = "PROMO_MINIMUM_NOT_MET"
	CodePromoExpired            Code = "PROMO_EXPIRED"
	CodeInvalidRedemption       Code = "INVALID_REDEMPTION"
	CodeVendorMinimumNotMet     Code = "VENDOR_MINIMUM_NOT_MET"
	CodeSessionNotFound         Code = "SESSION_NOT_FOUND"
	CodeSessionExpired          Code = "SESSION_EXPIRED"
	CodeInvalidStatusTransition Code = "INVALID_STATUS_TRANSITION"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:              {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeNotFound:                {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
	CodeConflict:                {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
	CodeStateConflict:           {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true},
	CodeIdempotency:             {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
	CodeInternal:                {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:              {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable", DetailsAllowed: true},
	CodeEmptyCart:               {HTTPStatus: http.StatusBadRequest, PublicMessage: "cart is empty"},
	CodeInvalidPromoCode:        {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "promo code is not valid", DetailsAllowed: true},
	CodePromoMinimumNotMet:      {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "order does not meet the promo minimum", DetailsAllowed: true},
	CodePromoExpired:            {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "promo code has expired", DetailsAllowed: true},
	CodeInvalidRedemption:       {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "loyalty redemption is not allowed", DetailsAllowed: true},
	CodeVendorMinimumNotMet:     {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "vendor minimum order not met", DetailsAllowed: true},
	CodeSessionNotFound:         {HTTPStatus: http.StatusNotFound, PublicMessage: "checkout session not found"},
	CodeSessionExpired:          {HTTPStatus: http.StatusGone, PublicMessage: "checkout session expired", DetailsAllowed: true},
	CodeInvalidStatusTransition: {HTTPStatus: http.StatusConflict, PublicMessage: "order status transition not allowed", DetailsAllowed: true},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Retryable reports whether the code of the first *Error in the chain is
// marked retryable. Untyped errors are treated as retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	typed := As(err)
	if typed == nil {
		return true
	}
	return MetadataFor(typed.Code()).Retryable
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
