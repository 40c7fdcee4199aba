package shared

import "context"

// TransactionManager runs a function inside a database transaction.
// The transaction is carried in the returned context; repositories
// resolve their connection from it, so one Do call can span several
// repositories across bounded contexts. Nested calls join the
// transaction already in the context.
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
