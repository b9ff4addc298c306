package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrValidation marks errors caused by client input.
var ErrValidation = errors.New("validation failed")

const (
	MinContentLength = 3
	MaxContentLength = 5000
	MaxMediaPerPost  = 10
	MaxQueryLength   = 200
)

// PostValidator validates client input before it reaches a service.
type PostValidator interface {
	ValidateContent(content string) error
	ValidateMediaIDs(ids []string) error
	ValidateQuery(query string) error
}

type DefaultValidator struct {
	minContent int
	maxContent int
	maxMedia   int
	maxQuery   int
}

func NewDefaultValidator() PostValidator {
	return &DefaultValidator{
		minContent: MinContentLength,
		maxContent: MaxContentLength,
		maxMedia:   MaxMediaPerPost,
		maxQuery:   MaxQueryLength,
	}
}

func (v *DefaultValidator) ValidateContent(content string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n == 0 {
		return invalid("content cannot be empty")
	}
	if n < v.minContent || n > v.maxContent {
		return invalid("content must be between %d and %d characters", v.minContent, v.maxContent)
	}

	return nil
}

func (v *DefaultValidator) ValidateMediaIDs(ids []string) error {
	if len(ids) > v.maxMedia {
		return invalid("a post can reference at most %d media items", v.maxMedia)
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return invalid("media id %q is not a valid id", id)
		}
		if _, dup := seen[id]; dup {
			return invalid("media id %q is listed twice", id)
		}
		seen[id] = struct{}{}
	}

	return nil
}

func (v *DefaultValidator) ValidateQuery(query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return invalid("query cannot be empty")
	}
	if utf8.RuneCountInString(q) > v.maxQuery {
		return invalid("query cannot be longer than %d characters", v.maxQuery)
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
