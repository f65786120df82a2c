package usecases

import (
	"context"

	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/errors"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
)

// runLedgerTx executes fn inside a transaction, retrying the whole
// transaction on optimistic version conflicts up to maxRetries attempts.
// Business errors pass through untouched; retry exhaustion surfaces as a
// generic internal error because the caller cannot act on a concurrency
// detail.
func runLedgerTx(
	ctx context.Context,
	txManager *db.TransactionManager,
	maxRetries int,
	log logger.Interface,
	fn func(ctx context.Context) error,
) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = txManager.RunInTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		if !entitlement.IsVersionConflict(err) {
			return err
		}
		log.Warnw("optimistic conflict on ledger transaction, retrying",
			"attempt", attempt,
			"max_retries", maxRetries,
		)
	}

	log.Errorw("ledger transaction retries exhausted", "error", err)
	return errors.NewInternalError("failed to apply entitlement change")
}
