package walletrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itzmejanak/ChargeGhar-sub001/model"
)

// ErrInsufficientFunds is returned when a debit would push a balance below
// zero. The conditional UPDATE makes the check and the write one atomic step.
var ErrInsufficientFunds = errors.New("insufficient funds")

type LedgerRow struct {
	ID           int64           `json:"id"`
	EntryType    string          `json:"entry_type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Repo interface {
	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	ListLedger(ctx context.Context, userID int64) ([]LedgerRow, error)

	// Tx-scoped mutations: callers own the transaction so ledger effects
	// commit or roll back together with intent/rental transitions.
	CreditTx(ctx context.Context, tx *sql.Tx, userID int64, amount decimal.Decimal, entryType model.LedgerType, refTable string, refID *int64) (decimal.Decimal, error)
	DebitTx(ctx context.Context, tx *sql.Tx, userID int64, amount decimal.Decimal, entryType model.LedgerType, refTable string, refID *int64) (decimal.Decimal, error)
	RedeemPointsTx(ctx context.Context, tx *sql.Tx, userID int64, points decimal.Decimal, refTable string, refID *int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) GetWallet(ctx context.Context, userID int64) (*model.Wallet, error) {
	const q = `
SELECT user_id, balance, points, version
FROM wallets
WHERE user_id=$1`
	w := model.Wallet{UserID: userID, Balance: decimal.Zero, Points: decimal.Zero}
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&w.UserID, &w.Balance, &w.Points, &w.Version)
	if errors.Is(err, sql.ErrNoRows) {
		// No row yet means a zero wallet.
		return &w, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *repo) ListLedger(ctx context.Context, userID int64) ([]LedgerRow, error) {
	const q = `
SELECT id, entry_type, amount, balance_after, created_at
FROM wallet_ledger
WHERE user_id=$1
ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerRow
	for rows.Next() {
		var l LedgerRow
		if err := rows.Scan(&l.ID, &l.EntryType, &l.Amount, &l.BalanceAfter, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repo) CreditTx(ctx context.Context, tx *sql.Tx, userID int64, amount decimal.Decimal, entryType model.LedgerType, refTable string, refID *int64) (decimal.Decimal, error) {
	const q = `
INSERT INTO wallets (user_id, balance, points, version)
VALUES ($1, $2, 0, 1)
ON CONFLICT (user_id) DO UPDATE
SET balance = wallets.balance + EXCLUDED.balance,
    version = wallets.version + 1,
    updated_at = NOW()
RETURNING balance`
	var newBal decimal.Decimal
	if err := tx.QueryRowContext(ctx, q, userID, amount).Scan(&newBal); err != nil {
		return decimal.Zero, err
	}
	if err := r.insertLedger(ctx, tx, userID, refTable, refID, entryType, amount, newBal); err != nil {
		return decimal.Zero, err
	}
	return newBal, nil
}

func (r *repo) DebitTx(ctx context.Context, tx *sql.Tx, userID int64, amount decimal.Decimal, entryType model.LedgerType, refTable string, refID *int64) (decimal.Decimal, error) {
	// Guard: only debit if sufficient; version bump keeps concurrent writers
	// honest.
	const q = `
UPDATE wallets
SET balance = balance - $2,
    version = version + 1,
    updated_at = NOW()
WHERE user_id = $1
  AND balance >= $2
RETURNING balance`
	var newBal decimal.Decimal
	err := tx.QueryRowContext(ctx, q, userID, amount).Scan(&newBal)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrInsufficientFunds
	}
	if err != nil {
		return decimal.Zero, err
	}
	if err := r.insertLedger(ctx, tx, userID, refTable, refID, entryType, amount.Neg(), newBal); err != nil {
		return decimal.Zero, err
	}
	return newBal, nil
}

func (r *repo) RedeemPointsTx(ctx context.Context, tx *sql.Tx, userID int64, points decimal.Decimal, refTable string, refID *int64) error {
	const q = `
UPDATE wallets
SET points = points - $2,
    version = version + 1,
    updated_at = NOW()
WHERE user_id = $1
  AND points >= $2`
	res, err := tx.ExecContext(ctx, q, userID, points)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInsufficientFunds
	}
	// Points entries record the redeemed point quantity; the currency balance
	// is untouched.
	var bal decimal.Decimal
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE user_id=$1`, userID).Scan(&bal); err != nil {
		return err
	}
	return r.insertLedger(ctx, tx, userID, refTable, refID, model.LedgerPointsRedeem, points.Neg(), bal)
}

func (r *repo) insertLedger(ctx context.Context, tx *sql.Tx, userID int64, refTable string, refID *int64, entryType model.LedgerType, amount, balanceAfter decimal.Decimal) error {
	const q = `
INSERT INTO wallet_ledger (user_id, ref_table, ref_id, entry_type, amount, balance_after)
VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := tx.ExecContext(ctx, q, userID, refTable, refID, string(entryType), amount, balanceAfter)
	return err
}
