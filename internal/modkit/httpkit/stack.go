package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"heapcensus/internal/platform/net/middleware"
)

// APIBase is where every module is mounted
const APIBase = "/api"

// StackOptions tunes the API middleware stack
type StackOptions struct {
	// SessionID pins requests to the live debug session; empty disables the check
	SessionID string
	// Slow marks slow requests in the access log
	Slow time.Duration
	// Timeout bounds each request, including drill-downs waiting on the command queue
	Timeout time.Duration
	CORS    middleware.CORSOptions
}

// CommonStack returns the middleware applied under APIBase, outermost first
func CommonStack(opt StackOptions) []func(http.Handler) http.Handler {
	if opt.Timeout <= 0 {
		opt.Timeout = 30 * time.Second
	}
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.AccessLogZerolog(middleware.AccessLogOptions{
			Slow:  opt.Slow,
			Quiet: []string{APIBase + "/census/status", APIBase + "/meta/health"},
		}),
		middleware.CORS(opt.CORS),
		middleware.Session(opt.SessionID),
		middleware.RecoverJSON,
		middleware.NoCache,
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes,
		middleware.Timeout(opt.Timeout),
	}
}

// MountAPI applies mw under APIBase and lets mount register module routes there
func MountAPI(r Router, mw []func(http.Handler) http.Handler, mount func(api Router)) {
	r.Route(APIBase, func(api Router) {
		api.Use(mw...)
		mount(api)
	})
}
