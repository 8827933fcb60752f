// Package module wires meta endpoints into the API using a tiny module
package module

import (
	"time"

	modkit "heapcensus/internal/modkit"
	"heapcensus/internal/modkit/httpkit"

	metahttp "heapcensus/internal/services/api/meta/http"
)

var _ modkit.Module = (*Module)(nil)

// Module serves health, readiness and build info
type Module struct {
	modkit.Built

	http metahttp.Deps
}

// New constructs a meta module with the provided dependencies and options
// target may be nil when no census session is bound
func New(deps modkit.Deps, target metahttp.Attacher, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	return &Module{
		Built: b,
		http: metahttp.Deps{
			ServiceName: "heapcensus",
			StartedAt:   time.Now(),
			PG:          optional(deps.PG),
			CH:          optional(deps.CH),
			Target:      target,
		},
	}
}

// MountRoutes mounts the meta endpoints under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.http) })
}

// Ports is nil; nothing wires against meta
func (m *Module) Ports() any { return nil }

// optional keeps a nil store seam a nil any so ready reports it as skipped
func optional[T comparable](v T) any {
	var zero T
	if v == zero {
		return nil
	}
	return v
}
