package wallet

import (
	"context"

	wrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/wallet"

	"github.com/itzmejanak/ChargeGhar-sub001/model"
)

type LedgerRow = wrepo.LedgerRow

// Service exposes reads only: every balance mutation happens inside the
// settlement or cancellation transactions that own it.
type Service interface {
	Balance(ctx context.Context, userID int64) (*model.Wallet, error)
	Ledger(ctx context.Context, userID int64) ([]LedgerRow, error)
}

type Repo interface {
	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
	ListLedger(ctx context.Context, userID int64) ([]LedgerRow, error)
}

type service struct {
	r Repo
}

func New(r Repo) Service { return &service{r: r} }

func (s *service) Balance(ctx context.Context, userID int64) (*model.Wallet, error) {
	return s.r.GetWallet(ctx, userID)
}

func (s *service) Ledger(ctx context.Context, userID int64) ([]LedgerRow, error) {
	return s.r.ListLedger(ctx, userID)
}
