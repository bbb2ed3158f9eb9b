// model/intent.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type IntentStatus string

const (
	IntentPending    IntentStatus = "PENDING"
	IntentProcessing IntentStatus = "PROCESSING"
	IntentCompleted  IntentStatus = "COMPLETED"
	IntentFailed     IntentStatus = "FAILED"
	IntentExpired    IntentStatus = "EXPIRED"
)

type IntentPurpose string

const (
	PurposeWalletTopup  IntentPurpose = "WALLET_TOPUP"
	PurposeRentalCharge IntentPurpose = "RENTAL_CHARGE"
	PurposeExtension    IntentPurpose = "EXTENSION"
)

func ValidPurpose(p string) (IntentPurpose, bool) {
	switch IntentPurpose(p) {
	case PurposeWalletTopup, PurposeRentalCharge, PurposeExtension:
		return IntentPurpose(p), true
	}
	return "", false
}

type PaymentIntent struct {
	ID            int64           `json:"-"`
	PublicID      string          `json:"intent_id"`
	UserID        int64           `json:"user_id"`
	Purpose       IntentPurpose   `json:"purpose"`
	Amount        decimal.Decimal `json:"amount"`
	WalletPortion decimal.Decimal `json:"wallet_portion"`
	PointsPortion decimal.Decimal `json:"points_portion"`
	Currency      string          `json:"currency"`
	Status        IntentStatus    `json:"status"`
	Gateway       string          `json:"gateway"`
	GatewayRef    *string         `json:"gateway_reference,omitempty"`
	RentalID      *int64          `json:"rental_id,omitempty"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	ExpiresAt     time.Time       `json:"expires_at"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// Terminal intents accept no further writes.
func (s IntentStatus) Terminal() bool {
	switch s {
	case IntentCompleted, IntentFailed, IntentExpired:
		return true
	}
	return false
}

// CanTransition enumerates the legal intent state machine:
// PENDING → PROCESSING → {COMPLETED, FAILED}; PENDING → EXPIRED.
// PENDING may also settle directly when verification and settlement happen
// in one step.
func CanTransition(from, to IntentStatus) bool {
	if from.Terminal() {
		return false
	}
	switch from {
	case IntentPending:
		switch to {
		case IntentProcessing, IntentCompleted, IntentFailed, IntentExpired:
			return true
		}
	case IntentProcessing:
		switch to {
		case IntentCompleted, IntentFailed:
			return true
		}
	}
	return false
}

var intentStatuses = []IntentStatus{
	IntentPending, IntentProcessing, IntentCompleted, IntentFailed, IntentExpired,
}

// TransitionSources derives the set of states a legal transition into to may
// start from. Writers pass this to conditional updates so the enforced
// machine and CanTransition cannot drift apart.
func TransitionSources(to IntentStatus) []IntentStatus {
	var out []IntentStatus
	for _, from := range intentStatuses {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}
