package provider

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Status codes reported by the platform geofencing service.
const (
	CodeNotAvailable          = 1000
	CodeTooManyGeofences      = 1001
	CodeTooManyPendingIntents = 1002
)

// codeMessages renders known status codes when the provider sends no text.
//
//nolint:gochecknoglobals // Read-only lookup table.
var codeMessages = map[int]string{
	CodeNotAvailable:          "geofence service is not available now",
	CodeTooManyGeofences:      "too many geofences registered",
	CodeTooManyPendingIntents: "too many pending requests",
}

// ProviderError is a failure reported by, or while talking to, the provider.
//
//nolint:revive // ProviderError reads better at call sites than provider.Error.
type ProviderError struct {
	// Code is the platform status code, 0 when unknown.
	Code int
	// Reason is a human-readable description.
	Reason string
	// Regions is the raw list of fences involved, if the provider sent one.
	Regions string
	// Err is the transport error when the request could not be submitted.
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("provider error %d: %s", e.Code, e.Reason)
	}

	return "provider error: " + e.Reason
}

// Unwrap exposes the transport error, if any.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// wireError is the JSON shape of an error event.
type wireError struct {
	Error     string          `json:"error"`
	ErrorCode json.RawMessage `json:"errorcode"`
	Regions   string          `json:"regions"`
}

// DecodeError turns an error event payload into a ProviderError.
// It never fails: text that is not an error object becomes the reason as-is,
// so a provider failure is never lost to a formatting problem.
func DecodeError(payload string) *ProviderError {
	payload = strings.TrimSpace(payload)

	var wire wireError
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		if payload == "" {
			payload = "unknown provider error"
		}

		return &ProviderError{Reason: payload}
	}

	result := &ProviderError{
		Code:    parseCode(wire.ErrorCode),
		Reason:  wire.Error,
		Regions: wire.Regions,
	}

	if result.Reason == "" {
		result.Reason = messageForCode(result.Code)
	}

	return result
}

// NewSubmitError wraps a transport failure of a start or stop request.
func NewSubmitError(operation string, err error) *ProviderError {
	return &ProviderError{
		Reason: fmt.Sprintf("%s request failed: %v", operation, err),
		Err:    err,
	}
}

// parseCode accepts both 1001 and "1001".
func parseCode(raw json.RawMessage) int {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" {
		return 0
	}

	code, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}

	return code
}

// messageForCode returns the description of a known code.
func messageForCode(code int) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}

	return "unknown geofence error"
}
