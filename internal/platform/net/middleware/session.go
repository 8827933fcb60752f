package middleware

import (
	"net/http"

	perr "heapcensus/internal/platform/errors"
	pnet "heapcensus/internal/platform/net"
)

// SessionHeader carries the debug session id a client believes it is talking to
const SessionHeader = "X-Session-ID"

// Session stamps the debug session id onto the request context and logger
// a request pinned to a different session is rejected as stale; the reply names the live session
func Session(id string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set(SessionHeader, id)
			ctx := pnet.WithRequest(r.Context(), pnet.RequestID(r.Context()), id)
			if got := r.Header.Get(SessionHeader); got != "" && got != id {
				status, body := pnet.Fail(ctx, perr.Stalef("session %s has ended", got))
				pnet.Write(w, status, body)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
