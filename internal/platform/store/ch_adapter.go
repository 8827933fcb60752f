package store

import (
	"context"
	"fmt"

	"heapcensus/internal/platform/store/ch"
)

// openCH opens the native ClickHouse client; the first statement or Guard dials
func openCH(ctx context.Context, cfg Config) (Clickhouse, error) {
	role := cfg.CH.ClientRole
	if role == "" {
		role = cfg.AppName
	}
	c, err := ch.Open(ctx, ch.Config{URL: cfg.CH.URL, Role: role, Tag: cfg.CH.ClientTag})
	if err != nil {
		return nil, err
	}
	return chAdapter{c}, nil
}

// chAdapter narrows *ch.CH to the Clickhouse seam; Exec, Ping and Close pass through
type chAdapter struct{ *ch.CH }

func (a chAdapter) Insert(ctx context.Context, table string, data any) error {
	rows, ok := data.([][]any)
	if !ok {
		return fmt.Errorf("store: clickhouse insert wants [][]any, got %T", data)
	}
	return a.CH.Insert(ctx, table, rows)
}

func (a chAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := a.CH.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRows{r}, nil
}

// chRows drops the Close error driver.Rows returns
type chRows struct{ ch.Rows }

func (r chRows) Close() { _ = r.Rows.Close() }
