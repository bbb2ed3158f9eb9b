// Package gatewayrepo holds the uniform payment-provider contract and its
// concrete adapters. The rest of the system never sees provider wire formats.
package gatewayrepo

import (
	"context"

	"github.com/shopspring/decimal"
)

type InitiateReq struct {
	ExternalID  string
	Amount      decimal.Decimal
	Currency    string
	Description string
	ReturnURL   string
	ExpirySec   int
}

// InitiateResp carries either a redirect URL (hosted checkout) or the form
// fields the client must post, depending on the provider.
type InitiateResp struct {
	Reference   string // correlation key the provider will echo back
	RedirectURL string
	FormFields  map[string]string
}

type VerifyResult struct {
	Success       bool
	ExternalTxnID string
	Amount        decimal.Decimal
}

type Adapter interface {
	Name() string

	Initiate(ctx context.Context, req InitiateReq) (*InitiateResp, error)

	// ValidateCallback rejects payloads with a bad signature or shape before
	// any lookup happens. A rejection here is terminal, never retried.
	ValidateCallback(signature string, raw []byte) error

	// CorrelationKey extracts the provider field that resolves a callback to
	// an intent.
	CorrelationKey(raw []byte) (string, error)

	// Verify confirms the payment against the provider's own API; the raw
	// callback alone is never trusted for settlement.
	Verify(ctx context.Context, raw []byte) (*VerifyResult, error)
}
