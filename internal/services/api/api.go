// Package api provides the HTTP API for the application
package api

import (
	"time"

	"heapcensus/internal/platform/config"
	"heapcensus/internal/platform/logger"
	phttp "heapcensus/internal/platform/net/http"
	"heapcensus/internal/platform/store"

	"heapcensus/internal/modkit"
	"heapcensus/internal/modkit/httpkit"
	"heapcensus/internal/modkit/swaggerkit"

	"heapcensus/internal/adapters/target/sim"
	metamod "heapcensus/internal/services/api/meta/module"
	censusmod "heapcensus/internal/services/census/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool

	// Census binds the engine to a target and its dispatch loops
	Census censusmod.Env

	// SessionID pins every request to the current debug session
	SessionID string

	// Sim exposes simulator controls under /target when set
	Sim *sim.Process
}

// Mount mounts the API under /api and returns the census module for the caller to start and close
func Mount(r phttp.Router, opt Options) (*censusmod.Module, error) {
	deps := modkit.Deps{Cfg: opt.Config}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	census, err := censusmod.New(deps, opt.Census, modkit.WithSwagger(opt.EnableSwagger))
	if err != nil {
		return nil, err
	}
	mods := []modkit.Module{
		metamod.New(deps, opt.Census.Target, modkit.WithSwagger(opt.EnableSwagger)),
		census,
	}

	docs := swaggerkit.Options{Enabled: opt.EnableSwagger, Base: httpkit.APIBase}
	for _, m := range mods {
		if !m.SwaggerOn() {
			docs.Hide = append(docs.Hide, m.Prefix())
		}
	}
	if opt.Sim == nil {
		docs.Hide = append(docs.Hide, "/target")
	}

	apiCfg := opt.Config.Prefix("API_")
	stack := httpkit.CommonStack(httpkit.StackOptions{
		SessionID: opt.SessionID,
		Slow:      apiCfg.MayDuration("SLOW", 500*time.Millisecond),
		Timeout:   apiCfg.MayDuration("TIMEOUT", 30*time.Second),
	})
	httpkit.MountAPI(r, stack, func(api httpkit.Router) {
		swaggerkit.Mount(api, docs)
		for _, m := range mods {
			m.MountRoutes(api)
		}
		if opt.Sim != nil {
			api.Route("/target", func(tr httpkit.Router) { sim.Register(tr, opt.Sim) })
		}
	})
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	return census, nil
}
