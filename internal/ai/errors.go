// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes providers map their native failures to.
const (
	ErrCodeAuthentication = "authentication_error"
	ErrCodeRateLimit      = "rate_limit_exceeded"
	ErrCodeModelNotFound  = "model_not_found"
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeServerError    = "server_error"
	ErrCodeTimeout        = "timeout"
	ErrCodeCanceled       = "canceled"
	ErrCodeBadResponse    = "bad_response"
)

// ProviderError is a typed failure from an LLM provider.
type ProviderError struct {
	Provider string
	Code     string
	Status   int // HTTP status, 0 when the request never completed
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Provider, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, e.Message)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRateLimitError reports whether err is an upstream rate limit.
func IsRateLimitError(err error) bool { return hasCode(err, ErrCodeRateLimit) }

// IsAuthenticationError reports whether the provider rejected the API key.
func IsAuthenticationError(err error) bool { return hasCode(err, ErrCodeAuthentication) }

// IsCanceled reports whether the call stopped because its context was cancelled.
func IsCanceled(err error) bool {
	return hasCode(err, ErrCodeCanceled) || errors.Is(err, context.Canceled)
}

func hasCode(err error, code string) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Code == code
}

// httpError maps a non-200 provider response to a ProviderError.
func httpError(provider string, status int, body []byte) *ProviderError {
	code := ErrCodeServerError
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = ErrCodeAuthentication
	case status == http.StatusTooManyRequests:
		code = ErrCodeRateLimit
	case status == http.StatusNotFound:
		code = ErrCodeModelNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		code = ErrCodeTimeout
	case status >= 400 && status < 500:
		code = ErrCodeInvalidRequest
	}
	return &ProviderError{Provider: provider, Code: code, Status: status, Message: truncate(string(body), 512)}
}

// transportError maps a failed round trip or stream read.
func transportError(provider, op string, err error) *ProviderError {
	code := ErrCodeServerError
	switch {
	case errors.Is(err, context.Canceled):
		code = ErrCodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	}
	return &ProviderError{Provider: provider, Code: code, Message: op, Err: err}
}

// streamError maps a failure while reading a response stream. Provider
// errors embedded in the stream pass through unchanged.
func streamError(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return transportError(provider, "stream", ctx.Err())
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return transportError(provider, "stream", err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
