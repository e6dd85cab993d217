package services

import (
	"errors"
	"fmt"
	"strings"
)

// Transient stage failure markers. The orchestrator retries these with
// backoff up to the configured limit before failing the item.
var (
	ErrClassificationUnavailable = errors.New("classification unavailable")
	ErrMalformedExtraction       = errors.New("malformed extraction")
	ErrReviewUnavailable         = errors.New("review unavailable")
)

// ErrValidation marks programmer-error input-contract violations. These are
// never retried.
var ErrValidation = errors.New("validation error")

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether a stage error should be retried by the
// orchestrator rather than failing the item outright.
func IsTransient(err error) bool {
	return errors.Is(err, ErrClassificationUnavailable) ||
		errors.Is(err, ErrMalformedExtraction) ||
		errors.Is(err, ErrReviewUnavailable)
}

// Kind returns the stable failure-kind label recorded on items that exhaust
// their retries.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrClassificationUnavailable):
		return "ClassificationUnavailable"
	case errors.Is(err, ErrMalformedExtraction):
		return "MalformedExtraction"
	case errors.Is(err, ErrReviewUnavailable):
		return "ReviewUnavailable"
	case errors.Is(err, ErrValidation):
		return "Validation"
	default:
		return "Unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
