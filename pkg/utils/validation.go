package utils

import (
	"fmt"
	"strconv"
	"strings"
)

const maxTodoTitleLength = 500

// ValidateTodoTitle rejects empty and oversized titles before they reach the
// storage layer.
func ValidateTodoTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return fmt.Errorf("title must not be empty")
	}
	if len(trimmed) > maxTodoTitleLength {
		return fmt.Errorf("title must not exceed %d characters", maxTodoTitleLength)
	}
	return nil
}

// ParseExternalID parses a platform-issued numeric identifier from a path
// parameter.
func ParseExternalID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier %q", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("identifier must be positive, got %d", id)
	}
	return id, nil
}
