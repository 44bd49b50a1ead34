package transport

import (
	"context"
	"fmt"

	"github.com/rhuss/bote/pkg/api"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to server errors. The server continues to accept new
// requests after a panic is recovered.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (result any, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					result = nil
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.Handle(ctx, req)
		})
	}
}
