package llm

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// IsTransient reports whether err from a single attempt is worth retrying.
// Network failures, a timed-out attempt, rate limiting and 5xx answers are
// transient. Once parent is done nothing is.
func IsTransient(parent context.Context, err error) bool {
	if err == nil || parent.Err() != nil {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if status, ok := httpStatus(err); ok {
		return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func httpStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
