package services

import (
	"errors"
	"fmt"
)

// Resolution misses are normal outcomes surfaced as distinguishable kinds so
// handlers can map them to response semantics. They are never retried.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrOrganizationNotFound = errors.New("organization not found")
)

// ProviderError reports a failed call to the CRM platform: a non-success HTTP
// status or a payload flagged unsuccessful. Retry policy belongs to the
// caller, not this layer.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("crm provider error: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("crm provider error: %s", e.Message)
}

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
