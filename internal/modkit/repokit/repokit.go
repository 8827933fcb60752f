// Package repokit binds SQL repositories to a pool or a transaction
package repokit

import (
	"context"

	"heapcensus/internal/platform/store"
)

type (
	// Queryer is what a bound repo runs statements on: the pool or an open tx
	Queryer = store.RowQuerier
	// TxRunner opens transactions
	TxRunner = store.TxRunner
)

// Binder makes a repo of type T over a Queryer
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a constructor to Binder
type BindFunc[T any] func(Queryer) T

func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// MustBind binds b to q; a nil q is a wiring bug and panics
func MustBind[T any](b Binder[T], q Queryer) T {
	if q == nil {
		panic("repokit: bind to nil Queryer")
	}
	return b.Bind(q)
}

// WithTx runs fn on a transaction from tx
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}
