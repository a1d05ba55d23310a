package idempotency

import (
	"errors"

	xhttp "github.com/nimasrn/finance-ledger/pkg/http"
	"github.com/nimasrn/finance-ledger/pkg/logger"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// Middleware replays the recorded response of a mutating request that carries
// an Idempotency-Key header already seen for the same method and path.
// Server errors are not recorded, so such requests may be retried. When Redis
// is unreachable requests pass through untouched.
func Middleware(store *Store) xhttp.MiddlewareFunc {
	return func(next xhttp.RequestHandler) xhttp.RequestHandler {
		return func(ctx *xhttp.RequestCtx) {
			header := ctx.Request.Header.Peek(HeaderIdempotencyKey)
			if len(header) == 0 || ctx.IsGet() || ctx.IsHead() {
				next(ctx)
				return
			}
			key := string(ctx.Method()) + " " + string(ctx.Path()) + " " + string(header)

			recorded, attempt, err := store.Begin(ctx, key)
			switch {
			case errors.Is(err, ErrInProgress):
				ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
				ctx.Response.SetStatusCode(xhttp.StatusConflict)
				ctx.Response.SetBodyString(`{"error":"` + ErrInProgress.Error() + `"}`)
				return
			case err != nil:
				logger.Warn("idempotency store unavailable", "error", err)
				next(ctx)
				return
			case recorded != nil:
				if recorded.ContentType != "" {
					ctx.Response.Header.Set("Content-Type", recorded.ContentType)
				}
				ctx.Response.Header.Set(HeaderReplayed, "true")
				ctx.Response.SetStatusCode(recorded.Status)
				ctx.Response.SetBody(recorded.Body)
				return
			}

			next(ctx)

			status := ctx.Response.StatusCode()
			if status >= xhttp.StatusInternalServerError {
				store.Abandon(ctx, attempt)
				return
			}
			err = store.Complete(ctx, attempt, Response{
				Status:      status,
				ContentType: string(ctx.Response.Header.ContentType()),
				Body:        append([]byte(nil), ctx.Response.Body()...),
			})
			if err != nil {
				logger.Warn("failed to record idempotent response", "error", err)
			}
		}
	}
}
