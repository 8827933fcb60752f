// Package http serves liveness, readiness and build info under /meta
package http

import (
	"context"
	"net/http"
	"time"

	"heapcensus/internal/core/version"
	"heapcensus/internal/modkit/httpkit"
)

// Pinger is any history backend that can report readiness
type Pinger interface {
	Ping(context.Context) error
}

// Attacher reports whether the census target is still attached
type Attacher interface {
	IsAttached() bool
}

// Deps are the handler dependencies; nil backends report as skipped
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	PG          any
	CH          any
	Target      Attacher
	// ReadyTimeout bounds all readiness pings together, default 2s
	ReadyTimeout time.Duration
}

// check states
const (
	statusOK       = "ok"
	statusFail     = "fail"
	statusSkipped  = "skipped"
	statusUnknown  = "unknown"
	statusDegraded = "degraded"
)

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"      example:"true"`
	Service string `json:"service" example:"heapcensus"`
	Started string `json:"started" example:"2026-10-01T13:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// ReadyCheck is one dependency result: ok, fail, skipped or unknown
type ReadyCheck struct {
	Name   string `json:"name"            example:"pg"`
	Status string `json:"status"          example:"ok"`
	Error  string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432: connect: connection refused"`
}

// ReadyResponse is ok, degraded (a backend cannot be pinged) or fail
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"`
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2026-10-01T13:05:00Z"`
}

// ServiceResponse names the service and its uptime in seconds
type ServiceResponse struct {
	Name    string `json:"name"    example:"heapcensus"`
	Started string `json:"started" example:"2026-10-01T13:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// Register mounts the meta routes on r
func Register(r httpkit.Router, d Deps) {
	if d.ReadyTimeout <= 0 {
		d.ReadyTimeout = 2 * time.Second
	}
	httpkit.Get(r, "/health", d.health)
	httpkit.Get(r, "/ready", d.ready)
	httpkit.Get(r, "/version", func(*http.Request) (any, error) { return version.Info(), nil })
	httpkit.Get(r, "/service", d.service)
}

func (d Deps) started() string { return d.StartedAt.UTC().Format(time.RFC3339) }
func (d Deps) uptime() int64   { return int64(time.Since(d.StartedAt) / time.Second) }

// health godoc
// @Summary Liveness
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /meta/health [get]
func (d Deps) health(*http.Request) (any, error) {
	return HealthResponse{OK: true, Service: d.ServiceName, Started: d.started(), Uptime: d.uptime()}, nil
}

// ready godoc
// @Summary Readiness of history backends and the census target
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse
// @Failure 503 {object} ReadyResponse
// @Router /meta/ready [get]
func (d Deps) ready(r *http.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), d.ReadyTimeout)
	defer cancel()

	out := ReadyResponse{
		Status: statusOK,
		Checks: []ReadyCheck{ping(ctx, "pg", d.PG), ping(ctx, "ch", d.CH), d.target()},
		Now:    time.Now().UTC().Format(time.RFC3339),
	}
	for _, c := range out.Checks {
		switch {
		case c.Status == statusFail:
			out.Status = statusFail
		case c.Status == statusUnknown && out.Status == statusOK:
			out.Status = statusDegraded
		}
	}
	if out.Status == statusFail {
		return httpkit.Response{Status: http.StatusServiceUnavailable, Body: out}, nil
	}
	return out, nil
}

// service godoc
// @Summary Service name and uptime
// @Tags Meta
// @Produce json
// @Success 200 {object} ServiceResponse
// @Router /meta/service [get]
func (d Deps) service(*http.Request) (any, error) {
	return ServiceResponse{Name: d.ServiceName, Started: d.started(), Uptime: d.uptime()}, nil
}

func ping(ctx context.Context, name string, backend any) ReadyCheck {
	if backend == nil {
		return ReadyCheck{Name: name, Status: statusSkipped}
	}
	p, ok := backend.(Pinger)
	if !ok {
		return ReadyCheck{Name: name, Status: statusUnknown}
	}
	if err := p.Ping(ctx); err != nil {
		return ReadyCheck{Name: name, Status: statusFail, Error: err.Error()}
	}
	return ReadyCheck{Name: name, Status: statusOK}
}

// a detached target fails readiness; no target at all is skipped
func (d Deps) target() ReadyCheck {
	switch {
	case d.Target == nil:
		return ReadyCheck{Name: "target", Status: statusSkipped}
	case !d.Target.IsAttached():
		return ReadyCheck{Name: "target", Status: statusFail, Error: "session ended"}
	default:
		return ReadyCheck{Name: "target", Status: statusOK}
	}
}
