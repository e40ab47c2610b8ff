package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks rejected intake input (missing fields, bad URLs).
	ErrValidation = errors.New("validation error")
	// ErrNotAnImage marks a reachable URL whose content-type is not image/*.
	ErrNotAnImage = errors.New("not an image")
	// ErrUnreachable marks a URL that neither probe could resolve.
	ErrUnreachable = errors.New("unreachable")
	// ErrMalformed marks an event envelope that could not be decoded.
	ErrMalformed = errors.New("malformed event")
	// ErrNotFound marks a lookup that matched nothing.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks external side-effect failures (download, upload,
	// signing, mail, graph writes). The saga acknowledges and moves on.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRejection reports whether err should surface to an intake caller as a
// 4xx-style rejection rather than an internal failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotAnImage) ||
		errors.Is(err, ErrUnreachable)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
