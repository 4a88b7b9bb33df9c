package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/tventura/storefront/api/web"
)

// Panics converts a panic in a handler into an error so the errors
// middleware can report it instead of killing the process.
func Panics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					trace := debug.Stack()
					err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(trace))
				}
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
