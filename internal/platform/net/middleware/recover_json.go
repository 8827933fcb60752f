package middleware

import (
	"net/http"
	"runtime/debug"

	perr "heapcensus/internal/platform/errors"
	"heapcensus/internal/platform/logger"
	pnet "heapcensus/internal/platform/net"
)

// RecoverJSON turns a handler panic into the census error envelope with code panic
// http.ErrAbortHandler is re-raised so net/http can drop the connection
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			ctx := r.Context()
			logger.C(ctx).Error().
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Str("path", r.URL.Path).
				Msg("handler panic recovered")

			status, body := pnet.Fail(ctx, perr.PanicErrf("internal error"))
			pnet.Write(w, status, body)
		}()
		next.ServeHTTP(w, r)
	})
}
