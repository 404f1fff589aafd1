package contracts

import "context"

// TxRunner is satisfied by the postgres TxManager.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
