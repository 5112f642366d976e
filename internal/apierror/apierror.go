// Package apierror maps every failure that reaches the HTTP boundary onto a
// closed set of variants and renders them as a uniform error body.
package apierror

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/congo-pay/wallet_ledger/internal/wallet"
)

// Code is the stable, machine-readable error identifier.
type Code string

const (
	CodeWalletNotFound    Code = "WALLET_NOT_FOUND"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeInvalidValue      Code = "INVALID_VALUE"
	CodeInvalidJSON       Code = "INVALID_JSON"
	CodeMethodNotAllowed  Code = "METHOD_NOT_ALLOWED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeRequest           Code = "REQUEST_ERROR"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Failure is implemented only by the variants declared in this package.
type Failure interface {
	failure()
}

// WalletNotFound: the wallet id is unknown.
type WalletNotFound struct {
	WalletID uuid.UUID
}

// InsufficientFunds: the wallet exists but the delta would make it negative.
type InsufficientFunds struct {
	WalletID uuid.UUID
}

// FieldError names one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validation: the request is structurally invalid (missing fields, out of
// range amount).
type Validation struct {
	FieldErrors []FieldError
}

// InvalidValue: a single field or path parameter failed a type, enum or
// format constraint. Exactly one of Field and Parameter is set.
type InvalidValue struct {
	Field         string
	Parameter     string
	Value         string
	ExpectedType  string
	AllowedValues []string
}

// InvalidJSON: the body could not be parsed at all.
type InvalidJSON struct{}

// MethodNotAllowed: the route exists but not for this method.
type MethodNotAllowed struct {
	Method    string
	Supported []string
}

// RouteNotFound: no route matches the path.
type RouteNotFound struct{}

// RequestError: any other client error raised by the HTTP stack.
type RequestError struct {
	Status int
	Detail string
}

func (e RequestError) clientStatus() int {
	if e.Status < 400 || e.Status >= 500 {
		return http.StatusBadRequest
	}
	return e.Status
}

// Internal: anything unclassified. Err is logged and never rendered.
type Internal struct {
	Err error
}

func (WalletNotFound) failure()    {}
func (InsufficientFunds) failure() {}
func (Validation) failure()        {}
func (InvalidValue) failure()      {}
func (InvalidJSON) failure()       {}
func (MethodNotAllowed) failure()  {}
func (RouteNotFound) failure()     {}
func (RequestError) failure()      {}
func (Internal) failure()          {}

// Error lets handlers return a Failure through the normal error path.
type Error struct {
	Failure Failure
}

// New wraps f as an error.
func New(f Failure) *Error {
	return &Error{Failure: f}
}

func (e *Error) Error() string {
	code, _, _ := describe(e.Failure)
	return string(code)
}

// Response is the JSON body of every error reply.
type Response struct {
	ErrorCode Code           `json:"errorCode"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Path      string         `json:"path"`
	Details   map[string]any `json:"details"`
}

// Classify maps an arbitrary error onto a Failure. Unknown errors become Internal.
func Classify(err error) Failure {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Failure != nil {
		return apiErr.Failure
	}

	var opErr *wallet.OperationError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, wallet.ErrWalletNotFound):
			return WalletNotFound{WalletID: opErr.WalletID}
		case errors.Is(opErr.Err, wallet.ErrInsufficientFunds):
			return InsufficientFunds{WalletID: opErr.WalletID}
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch {
		case fiberErr.Code == http.StatusNotFound:
			return RouteNotFound{}
		case fiberErr.Code == http.StatusMethodNotAllowed:
			return MethodNotAllowed{}
		case fiberErr.Code >= 400 && fiberErr.Code < 500:
			return RequestError{Status: fiberErr.Code, Detail: fiberErr.Message}
		}
	}

	return Internal{Err: err}
}

// Render builds the status and body for f. It is pure: path and now are
// supplied by the caller.
func Render(f Failure, path string, now time.Time) (int, Response) {
	code, status, message := describe(f)
	return status, Response{
		ErrorCode: code,
		Message:   message,
		Timestamp: now.UTC(),
		Path:      path,
		Details:   details(f),
	}
}

func describe(f Failure) (Code, int, string) {
	switch v := f.(type) {
	case WalletNotFound:
		return CodeWalletNotFound, http.StatusNotFound, "Wallet not found"
	case InsufficientFunds:
		return CodeInsufficientFunds, http.StatusConflict, "Insufficient funds"
	case Validation:
		return CodeValidation, http.StatusBadRequest, "Invalid request fields"
	case InvalidValue:
		if v.Parameter != "" {
			return CodeInvalidValue, http.StatusBadRequest, "Invalid path parameter"
		}
		return CodeInvalidValue, http.StatusBadRequest, "Invalid value in JSON"
	case InvalidJSON:
		return CodeInvalidJSON, http.StatusBadRequest, "Malformed JSON"
	case MethodNotAllowed:
		return CodeMethodNotAllowed, http.StatusMethodNotAllowed, "Method not supported for this endpoint"
	case RouteNotFound:
		return CodeNotFound, http.StatusNotFound, "Endpoint not found"
	case RequestError:
		message := v.Detail
		if message == "" {
			message = "Request error"
		}
		return CodeRequest, v.clientStatus(), message
	default:
		return CodeInternal, http.StatusInternalServerError, "Internal server error"
	}
}

func details(f Failure) map[string]any {
	d := map[string]any{}
	switch v := f.(type) {
	case WalletNotFound:
		d["walletId"] = v.WalletID.String()
	case InsufficientFunds:
		d["walletId"] = v.WalletID.String()
	case Validation:
		fieldErrors := v.FieldErrors
		if fieldErrors == nil {
			fieldErrors = []FieldError{}
		}
		d["fieldErrors"] = fieldErrors
	case InvalidValue:
		if v.Parameter != "" {
			d["parameter"] = v.Parameter
		} else if v.Field != "" {
			d["field"] = v.Field
		}
		d["value"] = v.Value
		if v.ExpectedType != "" {
			d["expectedType"] = v.ExpectedType
		}
		if len(v.AllowedValues) > 0 {
			d["allowedValues"] = v.AllowedValues
		}
	case MethodNotAllowed:
		supported := v.Supported
		if supported == nil {
			supported = []string{}
		}
		d["method"] = v.Method
		d["supportedMethods"] = supported
	case RequestError:
		d["status"] = v.clientStatus()
	}
	return d
}
