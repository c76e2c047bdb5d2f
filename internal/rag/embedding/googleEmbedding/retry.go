package googleEmbedding

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/akolanti/landbot/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var retryDelay = 5 * time.Second

// withRetry runs call once more after retryDelay when the first attempt was rate limited.
func withRetry[T any](ctx context.Context, log *logger_i.Logger, call func() (T, error)) (T, error) {
	res, err := call()
	if err == nil || !isRateLimited(err) {
		return res, err
	}

	log.Warn("Rate limit hit, retrying", "delay", retryDelay, "error", err)
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-time.After(retryDelay):
	}
	return call()
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code == http.StatusTooManyRequests {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	return false
}
