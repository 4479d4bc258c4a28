package rgbrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when a request violates a local
	// invariant and is refused before it is dispatched to the provider.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMalformedInvoice is returned when a decoded invoice lacks fields
	// every invoice must carry.
	ErrMalformedInvoice = errors.New("malformed invoice")

	// ErrMalformedResponse is returned when a provider response can't be
	// decoded into the shape its method promises.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrProviderRejected matches every application level failure
	// reported by the provider.
	ErrProviderRejected = errors.New("provider rejected request")

	// ErrInsufficientFunds matches provider failures caused by a lack of
	// spendable funds for a send.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

const (
	// CodeInsufficientFunds is reported when the wallet can't cover the
	// bitcoin side (fees, allocation UTXOs) of a send.
	CodeInsufficientFunds = "InsufficientFunds"

	// CodeInsufficientAssets is reported when the wallet doesn't hold
	// enough spendable units of the asset being sent.
	CodeInsufficientAssets = "InsufficientAssets"
)

// ProviderError is an application level failure returned by the provider. It
// is surfaced to callers verbatim and never retried.
type ProviderError struct {
	// Method is the request that failed.
	Method string `json:"-"`

	// Code is the provider's machine readable error name, if any.
	Code string `json:"code,omitempty"`

	// Message is the human readable reason given by the provider.
	Message string `json:"message"`
}

// Error returns a human-readable description of the provider failure.
func (e *ProviderError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("provider rejected %s: %s", e.Method,
			e.Message)
	}

	return fmt.Sprintf("provider rejected %s (code %s): %s", e.Method,
		e.Code, e.Message)
}

// Is lets errors.Is match a ProviderError against ErrProviderRejected and,
// for funding failures, ErrInsufficientFunds.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrProviderRejected:
		return true

	case ErrInsufficientFunds:
		return e.Code == CodeInsufficientFunds ||
			e.Code == CodeInsufficientAssets
	}

	return false
}

// NewProviderError constructs a ProviderError for the given method.
func NewProviderError(method, code, message string) *ProviderError {
	return &ProviderError{
		Method:  method,
		Code:    code,
		Message: message,
	}
}

// Decode unmarshals a raw provider result into the response type of the
// given method.
func Decode[T any](method string, raw json.RawMessage) (*T, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty %s result",
			ErrMalformedResponse, method)
	}

	var resp T
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse,
			method, err)
	}

	return &resp, nil
}
