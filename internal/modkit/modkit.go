// Package modkit wires census API modules: shared deps, identity options and route mounting
package modkit

import (
	"heapcensus/internal/modkit/httpkit"
	"heapcensus/internal/modkit/repokit"
	"heapcensus/internal/platform/config"
	"heapcensus/internal/platform/logger"
	str "heapcensus/internal/platform/strings"
	"heapcensus/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// PG and CH are nil when the history store is off
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}

// Module is what the API mounts under httpkit.APIBase
type Module interface {
	Name() string
	Prefix() string
	SwaggerOn() bool
	MountRoutes(r httpkit.Router)
	// Ports returns the module port set; callers type assert the concrete type
	Ports() any
}

// Option adjusts a module identity
type Option func(*Built)

// WithName sets the module name used in logs
func WithName(name string) Option { return func(b *Built) { b.name = name } }

// WithPrefix sets the route prefix under the API base
func WithPrefix(prefix string) Option { return func(b *Built) { b.prefix = prefix } }

// WithSwagger keeps the module paths in the served API document
func WithSwagger(enabled bool) Option { return func(b *Built) { b.swaggerOn = enabled } }

// Built is a resolved module identity; modules embed it
type Built struct {
	name      string
	prefix    string
	swaggerOn bool
}

// Build applies opts in order, later options win, and panics on a missing name or prefix
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	b.name = str.MustString(b.name, "module name")
	b.prefix = str.MustPrefix(b.prefix)
	return b
}

// Name returns the module name
func (b Built) Name() string { return b.name }

// Prefix returns the normalized route prefix
func (b Built) Prefix() string { return b.prefix }

// SwaggerOn reports whether the module is documented
func (b Built) SwaggerOn() bool { return b.swaggerOn }

// Mount runs register on a subrouter at the module prefix
func (b Built) Mount(r httpkit.Router, register func(httpkit.Router)) {
	r.Route(b.prefix, register)
}
