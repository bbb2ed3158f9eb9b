// model/wallet.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	UserID  int64           `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
	Points  decimal.Decimal `json:"points"`
	Version int64           `json:"-"`
}

type LedgerType string

const (
	LedgerTopup        LedgerType = "TOPUP_CONFIRMED"
	LedgerCharge       LedgerType = "RENTAL_CHARGE"
	LedgerPointsRedeem LedgerType = "POINTS_REDEEM"
	LedgerRefund       LedgerType = "RENTAL_REFUND"
	LedgerAdjust       LedgerType = "ADJUSTMENT"
)

// WalletLedger is append-only: one row per applied balance movement, carrying
// the balance after the movement so the sum of entries can be audited against
// the wallet row.
type WalletLedger struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	RefTable     string          `json:"ref_table"`
	RefID        *int64          `json:"ref_id,omitempty"`
	EntryType    LedgerType      `json:"entry_type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Transaction records one settled gateway movement for exactly one intent.
type Transaction struct {
	ID           int64           `json:"id"`
	IntentID     int64           `json:"intent_id"`
	GatewayTxnID string          `json:"gateway_txn_id"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedAt    time.Time       `json:"created_at"`
}
