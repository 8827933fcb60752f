// @title         heapcensus API
// @version       0.1.0
// @description   Heap census refresh engine for a suspended debug target

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"heapcensus/internal/adapters/dispatch"
	"heapcensus/internal/adapters/target/sim"
	"heapcensus/internal/platform/config"
	"heapcensus/internal/platform/logger"
	phttp "heapcensus/internal/platform/net/http"
	"heapcensus/internal/platform/store"
	"heapcensus/internal/services/api"
	censusmod "heapcensus/internal/services/census/module"

	"github.com/google/uuid"
)

// setEnvIfSet mirrors a non-empty flag value into the environment
func setEnvIfSet(key, val string) error {
	if val == "" {
		return nil
	}
	if err := os.Setenv(key, val); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// parseSeed reads "name=count,name=count"
func parseSeed(csv []string) (map[string]int, error) {
	out := make(map[string]int, len(csv))
	for _, part := range csv {
		name, n, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("bad seed %q: want class=count", part)
		}
		v, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil || v < 0 {
			return nil, fmt.Errorf("bad seed count %q", part)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

func main() {
	var (
		fAddr    = flag.String("addr", "", "listen address (overrides API_PORT)")
		fTrack   = flag.String("track", "", "inline tracking rules, e.g. java.lang.String=identity,com.acme.*=delta")
		fHistory = flag.String("history", "", "census history sink: off | auto | pg | ch")
		fPG      = flag.Bool("pg", false, "enable postgres history store (SERVICE_PGSQL_DBURL)")
		fCH      = flag.Bool("ch", false, "enable clickhouse history store (SERVICE_CH_DBURL)")
	)
	flag.Parse()

	// flags win over env so FromConfig sees one source
	for key, val := range map[string]string{
		"API_PORT":       *fAddr,
		"CENSUS_TRACK":   *fTrack,
		"CENSUS_HISTORY": *fHistory,
	} {
		if err := setEnvIfSet(key, val); err != nil {
			logger.Get().Panic().Err(err).Msg("flag override")
		}
	}

	root := config.New()
	simCfg := root.Prefix("SIM_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stCfg := store.FromConfig(root, "heapcensus")
	stCfg.PG.Enabled = stCfg.PG.Enabled || *fPG
	stCfg.CH.Enabled = stCfg.CH.Enabled || *fCH
	st, err := store.Open(ctx, stCfg, store.WithLogger(*logger.Named("store")))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	if err := st.Guard(ctx); err != nil {
		l.Panic().Err(err).Msg("store guard failed")
	}

	seed, err := parseSeed(simCfg.MayCSV("SEED", []string{"java.lang.String=1200", "java.util.HashMap=300", "java.lang.Object[]=80"}))
	if err != nil {
		l.Panic().Err(err).Msg("invalid SIM_SEED")
	}
	proc := sim.New(sim.Options{
		LatencyPerClass: simCfg.MayDuration("LATENCY_PER_CLASS", 200*time.Microsecond),
		Constrained:     simCfg.MayBool("CONSTRAINED", false),
		Seed:            seed,
	})

	// command and ui contexts
	cmds := dispatch.NewCommandQueue()
	ui := dispatch.NewUILoop(256)
	go func() { _ = cmds.Run(ctx) }()
	go func() { _ = ui.Run(ctx) }()
	defer cmds.Close()
	defer ui.Close()

	srv := phttp.NewServer(root)
	census, err := api.Mount(srv.Router(), api.Options{
		Config:         root,
		Store:          st,
		Logger:         l,
		EnableSwagger:  root.MayBool("API_SWAGGER", true),
		EnableProfiler: root.MayBool("API_PROFILER", false),
		Census:         censusmod.Env{Target: proc, Commands: cmds, UI: ui},
		SessionID:      uuid.NewString(),
		Sim:            proc,
	})
	if err != nil {
		l.Panic().Err(err).Msg("census module")
	}
	defer census.Close()
	if err := census.Start(ctx); err != nil {
		l.Panic().Err(err).Msg("census history start failed")
	}

	if err := srv.Run(ctx); err != nil {
		l.Error().Err(err).Msg("http server stopped")
	}
}
