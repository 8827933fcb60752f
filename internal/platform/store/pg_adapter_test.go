package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"heapcensus/internal/platform/store/pg"
	kit "heapcensus/internal/platform/testkit"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeConn stands in for a pool or a tx
type fakeConn struct {
	execs   []string
	execErr error
	delay   time.Duration
	rows    pgx.Rows
	scanErr error
}

func (f *fakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	time.Sleep(f.delay)
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("INSERT 0 2"), f.execErr
}

func (f *fakeConn) Query(context.Context, string, ...any) (pgx.Rows, error) { return f.rows, nil }

func (f *fakeConn) QueryRow(context.Context, string, ...any) pgx.Row {
	return rowFunc(func(dest ...any) error { return f.scanErr })
}

type fakeTx struct {
	pgx.Tx
	conn       *fakeConn
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.conn.Exec(ctx, sql, args...)
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.conn.Query(ctx, sql, args...)
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.conn.QueryRow(ctx, sql, args...)
}
func (t *fakeTx) Commit(context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error { t.rolledBack = true; return nil }

type fakePgxRows struct {
	pgx.Rows
	cols []string
}

func (r fakePgxRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		out[i].Name = c
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	events []pg.QueryEvent
}

func (r *recorder) OnQuery(_ context.Context, ev pg.QueryEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func newTestAdapter(conn *fakeConn, tx *fakeTx, tr pg.QueryTracer, slow time.Duration) *pgAdapter {
	return &pgAdapter{
		traced: traced{q: conn, trace: tr, slow: slow},
		begin:  func(context.Context) (pgx.Tx, error) { return tx, nil },
		ping:   func(context.Context) error { return nil },
		close:  func() {},
	}
}

func TestTraced_ExecReportsEvent(t *testing.T) {
	boom := errors.New("boom")
	conn := &fakeConn{execErr: boom, delay: 2 * time.Millisecond}
	rec := &recorder{}
	a := newTestAdapter(conn, nil, rec, time.Millisecond)

	tag, err := a.Exec(context.Background(), "INSERT INTO census_cycles VALUES ($1)", "c1")
	if !errors.Is(err, boom) || tag.RowsAffected() != 2 {
		t.Fatalf("tag=%v err=%v", tag, err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("events = %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.SQL != "INSERT INTO census_cycles VALUES ($1)" || len(ev.Args) != 1 || !errors.Is(ev.Err, boom) {
		t.Fatalf("event = %+v", ev)
	}
	if !ev.Slow || ev.Elapsed < 2*time.Millisecond {
		t.Fatalf("want slow event, got %+v", ev)
	}
}

func TestTraced_ZeroSlowNeverFlags(t *testing.T) {
	rec := &recorder{}
	a := newTestAdapter(&fakeConn{delay: time.Millisecond}, nil, rec, 0)
	if _, err := a.Exec(context.Background(), "SELECT 1"); err != nil {
		t.Fatal(err)
	}
	if rec.events[0].Slow {
		t.Fatal("slow flagged with threshold disabled")
	}
}

func TestTraced_QueryRowReportsAfterScan(t *testing.T) {
	noRows := pgx.ErrNoRows
	rec := &recorder{}
	a := newTestAdapter(&fakeConn{scanErr: noRows}, nil, rec, 0)

	row := a.QueryRow(context.Background(), "SELECT 1")
	if len(rec.events) != 0 {
		t.Fatal("reported before Scan")
	}
	var one int
	if err := row.Scan(&one); !errors.Is(err, noRows) {
		t.Fatalf("scan err = %v", err)
	}
	if len(rec.events) != 1 || !errors.Is(rec.events[0].Err, noRows) {
		t.Fatalf("events = %+v", rec.events)
	}
}

func TestTraced_QueryColumns(t *testing.T) {
	conn := &fakeConn{rows: fakePgxRows{cols: []string{"cycle_id", "instances"}}}
	rows, err := newTestAdapter(conn, nil, nil, 0).Query(context.Background(), "SELECT cycle_id, instances FROM census_cycles")
	if err != nil {
		t.Fatal(err)
	}
	if cols := rows.Columns(); len(cols) != 2 || cols[0] != "cycle_id" || cols[1] != "instances" {
		t.Fatalf("columns = %v", cols)
	}
}

func TestTx_CommitsOnSuccess(t *testing.T) {
	txConn := &fakeConn{}
	tx := &fakeTx{conn: txConn}
	rec := &recorder{}
	a := newTestAdapter(&fakeConn{}, tx, rec, 0)

	err := a.Tx(context.Background(), func(q RowQuerier) error {
		_, err := q.Exec(context.Background(), "INSERT INTO census_counts VALUES (1)")
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
	if !tx.committed || tx.rolledBack {
		t.Fatalf("committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
	if len(txConn.execs) != 1 || len(rec.events) != 1 {
		t.Fatalf("execs=%v events=%d", txConn.execs, len(rec.events))
	}
}

func TestTx_RollsBackOnError(t *testing.T) {
	tx := &fakeTx{conn: &fakeConn{}}
	a := newTestAdapter(&fakeConn{}, tx, nil, 0)
	boom := errors.New("boom")

	if err := a.Tx(context.Background(), func(RowQuerier) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
}

func TestTx_RollsBackOnPanic(t *testing.T) {
	tx := &fakeTx{conn: &fakeConn{}}
	a := newTestAdapter(&fakeConn{}, tx, nil, 0)

	kit.MustPanic(t, func() {
		_ = a.Tx(context.Background(), func(RowQuerier) error { panic("bad census") })
	})
	if tx.committed || !tx.rolledBack {
		t.Fatalf("committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
}

func TestTx_BeginError(t *testing.T) {
	a := newTestAdapter(&fakeConn{}, nil, nil, 0)
	a.begin = func(context.Context) (pgx.Tx, error) { return nil, errors.New("pool closed") }
	called := false
	err := a.Tx(context.Background(), func(RowQuerier) error { called = true; return nil })
	if err == nil || called {
		t.Fatalf("err=%v called=%v", err, called)
	}
	kit.MustContain(t, err.Error(), "pg: begin")
}
