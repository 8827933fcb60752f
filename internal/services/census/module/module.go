// Package module wires the census engine into the API using modkit
package module

import (
	"context"

	modkit "heapcensus/internal/modkit"
	"heapcensus/internal/modkit/httpkit"
	"heapcensus/internal/services/census/board"
	"heapcensus/internal/services/census/domain"
	censushttp "heapcensus/internal/services/census/http"
	"heapcensus/internal/services/census/repo"
	censussvc "heapcensus/internal/services/census/service"
)

// Env is the runtime a census session is bound to
type Env struct {
	Target   domain.Target
	Commands domain.CommandScheduler
	UI       domain.UIContext
}

var _ modkit.Module = (*Module)(nil)

// Module implements the census module
type Module struct {
	modkit.Built

	deps  modkit.Deps
	opts  Options
	ports Ports

	http     censushttp.Deps
	svc      *censussvc.Svc
	board    *board.Board
	recorder *censussvc.Recorder
	pgHist   *repo.TxWriter
	chHist   *repo.Columnar
}

// New constructs the census module from deps.Cfg and env
func New(deps modkit.Deps, env Env, opts ...modkit.Option) (*Module, error) {
	o := FromConfig(deps.Cfg)
	return NewWithOptions(deps, env, o, opts...)
}

// NewWithOptions constructs the census module from explicit options
func NewWithOptions(deps modkit.Deps, env Env, o Options, opts ...modkit.Option) (*Module, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	tracking, err := o.Tracking()
	if err != nil {
		return nil, err
	}

	b := modkit.Build(append([]modkit.Option{modkit.WithName("census"), modkit.WithPrefix("/census")}, opts...)...)

	m := &Module{
		Built: b,
		deps:  deps,
		opts:  o,
		board: board.New(),
	}

	var sinks []censussvc.HistorySink
	if deps.PG != nil && (o.History == HistoryAuto || o.History == HistoryPG) {
		m.pgHist = repo.NewTxWriter(deps.PG)
		sinks = append(sinks, censussvc.HistorySink{Name: "pg", Writer: m.pgHist})
	}
	if deps.CH != nil && (o.History == HistoryAuto || o.History == HistoryCH) {
		m.chHist = repo.NewCH(deps.CH)
		sinks = append(sinks, censussvc.HistorySink{Name: "ch", Writer: m.chHist})
	}

	rt := censussvc.Runtime{
		Target:   env.Target,
		Tracking: tracking,
		Sink:     m.board,
		Commands: env.Commands,
		UI:       env.UI,
	}
	if len(sinks) > 0 {
		m.recorder = censussvc.NewRecorder(deps.Log, o.HistoryBuffer, sinks...)
		rt.History = m.recorder
	}
	m.svc = censussvc.New(deps, rt, o.ServiceConfig())
	m.ports = Ports{Controller: m.svc, Reader: m.svc, Listener: m.svc, Board: m.board}

	hd := censushttp.Deps{Svc: m.svc, Board: m.board}
	if m.pgHist != nil {
		hd.History = m.pgHist
	}
	if m.recorder != nil {
		hd.HistoryStats = m.recorder.Stats
	}

	m.http = hd
	return m, nil
}

// Start prepares history storage and runs the recorder until ctx is done
func (m *Module) Start(ctx context.Context) error {
	if m.recorder == nil {
		return nil
	}
	if m.pgHist != nil {
		if err := repo.EnsurePGSchema(ctx, m.deps.PG); err != nil {
			return err
		}
	}
	if m.chHist != nil {
		if err := m.chHist.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	go func() {
		if err := m.recorder.Run(ctx); err != nil && ctx.Err() == nil {
			m.deps.Log.Error().Err(err).Msg("census history recorder stopped")
		}
	}()
	return nil
}

// Close stops the session and the history recorder
func (m *Module) Close() {
	m.svc.OnSessionEnded()
	if m.recorder != nil {
		m.recorder.Close()
	}
}

// Options returns the effective options
func (m *Module) Options() Options { return m.opts }

// MountRoutes mounts the census endpoints under the module prefix
func (m *Module) MountRoutes(r httpkit.Router) {
	m.Mount(r, func(rr httpkit.Router) { censushttp.Register(rr, m.http) })
}
