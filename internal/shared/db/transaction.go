// Package db carries the gorm transaction through context so repositories
// can join a caller-opened transaction without knowing about it.
package db

import (
	"context"

	"gorm.io/gorm"
)

type ctxTxKey struct{}

// TransactionManager opens transactions and threads them through context.
// Repositories resolve the handle with GetTxFromContext, so a use case can
// compose several repository calls into one atomic unit.
type TransactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// RunInTransaction runs fn inside one transaction. Any error return rolls
// the whole transaction back, including business errors; partially applied
// ledger writes never commit.
func (tm *TransactionManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, ctxTxKey{}, tx))
	})
}

// GetTxFromContext returns the transaction carried by ctx, or defaultDB
// bound to ctx when the call runs outside a transaction.
func GetTxFromContext(ctx context.Context, defaultDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(ctxTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return defaultDB.WithContext(ctx)
}
