// Package repo persists published censuses to Postgres and ClickHouse
package repo

import (
	"context"

	"heapcensus/internal/modkit/repokit"
	perr "heapcensus/internal/platform/errors"
	"heapcensus/internal/platform/store"
	"heapcensus/internal/services/census/domain"
)

// Storage is the census history repository
type Storage interface {
	WriteCensus(ctx context.Context, c domain.Census) error
	RecentCycles(ctx context.Context, limit int) ([]domain.CycleRecord, error)
}

type (
	pg       struct{ q repokit.Queryer }
	pgBinder struct{}
)

// NewPG constructs a repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return pgBinder{} }

// Bind implements repokit.Binder
func (pgBinder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// PGSchema creates the census history tables
const PGSchema = `
CREATE TABLE IF NOT EXISTS census_cycles (
	cycle_id   uuid PRIMARY KEY,
	episode_id uuid NOT NULL,
	taken_at   timestamptz NOT NULL,
	classes    integer NOT NULL,
	instances  bigint NOT NULL
);
CREATE TABLE IF NOT EXISTS census_counts (
	cycle_id   uuid NOT NULL REFERENCES census_cycles (cycle_id) ON DELETE CASCADE,
	class_id   bigint NOT NULL,
	class_name text NOT NULL,
	instances  bigint NOT NULL,
	PRIMARY KEY (cycle_id, class_id)
);
CREATE INDEX IF NOT EXISTS census_cycles_taken_at_idx ON census_cycles (taken_at DESC);
`

// EnsurePGSchema applies PGSchema
func EnsurePGSchema(ctx context.Context, q repokit.Queryer) error {
	_, err := store.Exec(ctx, q, PGSchema)
	return perr.FromPostgresf(err, "census schema")
}

// WriteCensus implements Storage; run it inside a transaction so both tables move together.
// Errors carry the mapped SQLSTATE code so the recorder can tell transient failures apart.
func (s *pg) WriteCensus(ctx context.Context, c domain.Census) error {
	if _, err := store.Exec(ctx, s.q, `
		INSERT INTO census_cycles (cycle_id, episode_id, taken_at, classes, instances)
		VALUES ($1::uuid, $2::uuid, $3, $4, $5)
		ON CONFLICT (cycle_id) DO NOTHING`,
		c.CycleID.String(), c.EpisodeID.String(), c.At.UTC(), len(c.Classes), c.Total(),
	); err != nil {
		return perr.FromPostgresf(err, "write cycle %s", c.CycleID)
	}
	if len(c.Classes) == 0 {
		return nil
	}

	ids := make([]int64, len(c.Classes))
	names := make([]string, len(c.Classes))
	for i, cl := range c.Classes {
		ids[i] = int64(cl.ID)
		names[i] = cl.Name
	}
	_, err := store.Exec(ctx, s.q, `
		INSERT INTO census_counts (cycle_id, class_id, class_name, instances)
		SELECT $1::uuid, u.class_id, u.class_name, u.instances
		  FROM unnest($2::bigint[], $3::text[], $4::bigint[]) AS u(class_id, class_name, instances)
		ON CONFLICT (cycle_id, class_id) DO NOTHING`,
		c.CycleID.String(), ids, names, c.Counts,
	)
	return perr.FromPostgresf(err, "write counts %s", c.CycleID)
}

// RecentCycles implements Storage
func (s *pg) RecentCycles(ctx context.Context, limit int) ([]domain.CycleRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	out, err := store.Many(ctx, s.q, scanCycle, `
		SELECT cycle_id::text, episode_id::text, taken_at, classes, instances
		  FROM census_cycles
		 ORDER BY taken_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, perr.FromPostgresf(err, "recent cycles")
	}
	if out == nil {
		out = []domain.CycleRecord{}
	}
	return out, nil
}

func scanCycle(r store.Row) (domain.CycleRecord, error) {
	var c domain.CycleRecord
	err := r.Scan(&c.CycleID, &c.EpisodeID, &c.At, &c.Classes, &c.Instances)
	return c, err
}

// TxWriter writes each census inside its own Postgres transaction
type TxWriter struct {
	tx   repokit.TxRunner
	bind repokit.Binder[Storage]
}

// NewTxWriter binds the PG repo per transaction on tx
func NewTxWriter(tx repokit.TxRunner) *TxWriter {
	return &TxWriter{tx: tx, bind: NewPG()}
}

// WriteCensus implements domain.HistoryWriter
func (w *TxWriter) WriteCensus(ctx context.Context, c domain.Census) error {
	return repokit.WithTx(ctx, w.tx, func(q repokit.Queryer) error {
		return repokit.MustBind(w.bind, q).WriteCensus(ctx, c)
	})
}

// RecentCycles implements domain.HistoryReader
func (w *TxWriter) RecentCycles(ctx context.Context, limit int) ([]domain.CycleRecord, error) {
	return w.bind.Bind(w.tx).RecentCycles(ctx, limit)
}
