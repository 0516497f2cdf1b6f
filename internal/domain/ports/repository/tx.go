package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls.
// The concrete type is infra-defined (pgx.Tx for Postgres). Repositories
// MUST gracefully accept nil (non-transactional path) and may strengthen
// their queries when a real tx is present, e.g. SELECT ... FOR UPDATE.
type Tx interface{}

// NoTX is passed where a call site wants to be explicit about running
// outside a transaction.
var NoTX Tx

// TransactionManager executes fn inside a database transaction, passing
// the handle via tx. If fn errors the transaction is rolled back,
// otherwise committed. Keeping the handle opaque keeps use-case
// interfaces free of storage types.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
