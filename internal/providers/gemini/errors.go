package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"adstory/internal/domain"
)

const entityNotFound = "Requested entity was not found"

// classify maps SDK failures onto the domain taxonomy. A vanished entity
// usually means the key lost access to the model or job.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrProviderUnavailable) ||
		errors.Is(err, domain.ErrResourceNotFound) ||
		errors.Is(err, domain.ErrProviderRequestFailed) {
		return err
	}

	code, msg := 0, err.Error()
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, msg = apiErr.Code, firstNonEmpty(apiErr.Message, msg)
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code, msg = apiErrPtr.Code, firstNonEmpty(apiErrPtr.Message, msg)
	}

	switch {
	case code == http.StatusNotFound || strings.Contains(msg, entityNotFound):
		return fmt.Errorf("%w: %s: %s", domain.ErrResourceNotFound, op, msg)
	case code == http.StatusUnauthorized || code == http.StatusForbidden ||
		strings.Contains(msg, "API key not valid"):
		return fmt.Errorf("%w: %s: %s", domain.ErrProviderUnavailable, op, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: deadline exceeded", domain.ErrProviderRequestFailed, op)
	default:
		return fmt.Errorf("%w: %s: %s", domain.ErrProviderRequestFailed, op, msg)
	}
}
