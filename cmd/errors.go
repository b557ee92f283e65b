package cmd

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/marcus/sutra/internal/journey"
	"github.com/marcus/sutra/internal/output"
	"github.com/marcus/sutra/internal/progress"
	"github.com/marcus/sutra/internal/syncclient"
)

// inputError marks a bad argument or flag value
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

func invalidInput(format string, args ...any) error {
	return &inputError{msg: fmt.Sprintf(format, args...)}
}

// errorCode maps an error to the stable code used in --json output
func errorCode(err error) string {
	var inErr *inputError
	var apiErr *syncclient.APIError
	var urlErr *url.Error
	var netErr net.Error

	switch {
	case errors.As(err, &inErr), errors.Is(err, progress.ErrInvalidBackup):
		return output.ErrCodeInvalidInput
	case errors.Is(err, journey.ErrReadOnly):
		return output.ErrCodeReadOnly
	case errors.Is(err, syncclient.ErrUnauthorized):
		return output.ErrCodeUnauthorized
	case errors.Is(err, syncclient.ErrNotFound):
		return output.ErrCodeNotFound
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return output.ErrCodeNetworkError
	default:
		return output.ErrCodeStorageError
	}
}
