// Package middleware holds adapters and in house middlewares
package middleware

import (
	"net/http"
	"time"

	"heapcensus/internal/platform/logger"
	pnet "heapcensus/internal/platform/net"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// AccessLogOptions configures the zerolog access log
type AccessLogOptions struct {
	// Slow logs requests taking >= Slow at warn; 0 disables
	Slow time.Duration
	// Quiet paths log at debug, for the status endpoint clients poll
	Quiet []string
	// Log overrides the base logger, defaults to logger.Named("http")
	Log *logger.Logger
}

// AccessLogZerolog logs one line per request with status, size, latency and the request and session ids
// the request id is stamped on the context so handler logs via logger.C carry it too
func AccessLogZerolog(opt AccessLogOptions) func(http.Handler) http.Handler {
	quiet := make(map[string]struct{}, len(opt.Quiet))
	for _, p := range opt.Quiet {
		quiet[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := pnet.RequestID(r.Context())
			r = r.WithContext(pnet.WithRequest(r.Context(), reqID, ""))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			log := opt.Log
			if log == nil {
				log = logger.Named("http")
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			evt := log.Info()
			switch {
			case status >= http.StatusInternalServerError:
				evt = log.Error()
			case opt.Slow > 0 && elapsed >= opt.Slow:
				evt = log.Warn()
			default:
				if _, ok := quiet[r.URL.Path]; ok {
					evt = log.Debug()
				}
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", elapsed).
				Str("request_id", reqID).
				Str("session_id", ww.Header().Get(SessionHeader)).
				Msg("request done")
		})
	}
}
