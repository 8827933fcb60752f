package repo

import (
	"context"

	"heapcensus/internal/platform/store"
	"heapcensus/internal/services/census/domain"
)

// CHTable is the columnar census table
const CHTable = "census_counts"

// CHSchema creates CHTable
const CHSchema = `
CREATE TABLE IF NOT EXISTS census_counts (
	cycle_id   UUID,
	episode_id UUID,
	taken_at   DateTime64(3, 'UTC'),
	class_id   UInt64,
	class_name LowCardinality(String),
	instances  Int64
) ENGINE = MergeTree
ORDER BY (class_name, taken_at)`

// Columnar writes one row per class and cycle to ClickHouse
type Columnar struct {
	ch store.Clickhouse
}

// NewCH returns a ClickHouse census writer
func NewCH(ch store.Clickhouse) *Columnar { return &Columnar{ch: ch} }

// EnsureSchema applies CHSchema
func (w *Columnar) EnsureSchema(ctx context.Context) error {
	return w.ch.Exec(ctx, CHSchema)
}

// WriteCensus appends the census rows in one batch
func (w *Columnar) WriteCensus(ctx context.Context, c domain.Census) error {
	if len(c.Classes) == 0 {
		return nil
	}
	return w.ch.Insert(ctx, CHTable, Rows(c))
}

// Rows flattens c into insert rows in CHTable column order
func Rows(c domain.Census) [][]any {
	at := c.At.UTC()
	rows := make([][]any, len(c.Classes))
	for i, cl := range c.Classes {
		rows[i] = []any{c.CycleID, c.EpisodeID, at, uint64(cl.ID), cl.Name, c.Counts[i]}
	}
	return rows
}
