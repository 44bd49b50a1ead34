package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/rhuss/bote/pkg/api"
	"github.com/rhuss/bote/pkg/envelope"
)

// StatusFromError maps an error to the HTTP status of its error response.
// Rejections carry their own status; construction failures (unsupported
// data, invalid status codes, schema mismatches) and unknown errors are
// server errors.
func StatusFromError(err error) int {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// APIErrorFrom returns the client-facing form of err. Rejections are
// returned as is; any other error becomes a generic server error so
// internal details do not leak.
func APIErrorFrom(err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewServerError("internal server error")
}

// ErrorEnvelope builds the JSON error response for err:
//
//	{"error": {"type": "...", "message": "..."}}
func ErrorEnvelope(err error, opts ...envelope.Option) (*envelope.Envelope, error) {
	opts = append(opts[:len(opts):len(opts)], envelope.WithStatus(StatusFromError(err)))
	return envelope.New(api.ErrorResponse{Error: APIErrorFrom(err)}, opts...)
}
