package repository

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TransactionManager runs order imports atomically. Repositories pick the
// transaction up from the context through GetDB.
type TransactionManager interface {
	// RunInTx commits when fn returns nil. A call made inside another RunInTx
	// runs in a savepoint of the outer transaction, so its failure rolls back
	// only its own writes.
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return GetDB(ctx, t.db).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// GetDB returns the transaction carried by ctx, or rootDB outside one.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
