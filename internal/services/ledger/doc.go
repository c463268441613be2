/*
Package ledger implements the custodial balance engine.

Every operation that touches money runs as one storage transaction: the
wallet row is locked for the read-check-write sequence, the balance or
hold mutation and the transaction record that explains it are written
together, and any failure rolls the whole operation back. Funds leaving
the platform are reserved first (hold), then settled or released by an
explicit confirm or cancel; nothing auto-resolves.

Usage:

	svc := ledger.NewService(repo, reporting, cache, ledger.Config{}, nil, logger)

	tx, err := svc.Deposit(ctx, userID, "BTC", amount, txid, nil)
	tx, err = svc.Withdraw(ctx, userID, "BTC", amount, addr, fee)
	tx, err = svc.ConfirmWithdrawal(ctx, userID, tx.ID, chainTxid)

Pending deposits are credited only once their external confirmation
count reaches the per-currency threshold; repeated confirmation updates
after completion never credit twice.
*/
package ledger
