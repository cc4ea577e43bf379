package ai

import (
	"context"
	"errors"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// isRetriable reports whether a hosted API failure is transient: rate
// limiting, a server error, a timeout or a network failure
func isRetriable(err error) bool {
	if code, ok := statusCode(err); ok {
		return retriableStatus(code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retriableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// statusCode returns the HTTP status of a hosted API failure. A RequestError
// is checked first: go-openai returns one for error bodies that are not
// OpenAI-shaped, wrapping an APIError that carries no status.
func statusCode(err error) (int, bool) {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	return 0, false
}
