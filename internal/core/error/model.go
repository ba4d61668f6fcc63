package errx

import (
	"context"
	"errors"
	"net/http"
)

// WrapModel maps a failed language model round trip to AppError.
// Cancellation keeps its own status so callers can tell an interrupted turn
// from an unreachable endpoint.
func WrapModel(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return New(err, 499, ModelErrorMessage)
	case errors.Is(err, context.DeadlineExceeded):
		return New(err, http.StatusGatewayTimeout, ModelErrorMessage)
	default:
		return New(err, http.StatusBadGateway, ModelErrorMessage)
	}
}

// WrapModelOutput marks err as caused by a reply that could not be parsed.
func WrapModelOutput(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, ModelOutputMessage)
}
