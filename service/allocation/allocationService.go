// Package allocation computes how a required amount is covered by loyalty
// points, wallet balance, and a new gateway payment. The waterfall order
// (points → wallet → gateway) is fixed policy.
package allocation

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/itzmejanak/ChargeGhar-sub001/model"
	"github.com/itzmejanak/ChargeGhar-sub001/service/settings"
)

type Scenario string

const (
	ScenarioAmount  Scenario = "AMOUNT"
	ScenarioPackage Scenario = "PACKAGE"
	ScenarioRental  Scenario = "RENTAL"
)

type Request struct {
	Scenario  Scenario
	Amount    decimal.Decimal
	PackageID int64
	RentalID  int64
}

type Breakdown struct {
	Target         decimal.Decimal `json:"target_amount"`
	FromPoints     decimal.Decimal `json:"from_points"`      // currency value covered by points
	PointsUsed     decimal.Decimal `json:"points_used"`      // point units consumed
	FromWallet     decimal.Decimal `json:"from_wallet"`
	Shortfall      decimal.Decimal `json:"shortfall"`
	SuggestedTopup decimal.Decimal `json:"suggested_topup"`
	PointsAfter    decimal.Decimal `json:"points_after"`
	WalletAfter    decimal.Decimal `json:"wallet_after"` // display only, may be negative
	Sufficient     bool            `json:"is_sufficient"`
}

// Narrow read-only views of the collaborators this engine snapshots.
type BalanceReader interface {
	GetWallet(ctx context.Context, userID int64) (*model.Wallet, error)
}

type PackageReader interface {
	GetPackage(ctx context.Context, packageID int64) (*model.Package, error)
}

type OutstandingReader interface {
	OutstandingAmount(ctx context.Context, rentalID int64) (decimal.Decimal, error)
}

type Service interface {
	Calculate(ctx context.Context, userID int64, req Request) (*Breakdown, error)
}

type service struct {
	wallets  BalanceReader
	packages PackageReader
	rentals  OutstandingReader
	settings settings.Service
}

func New(w BalanceReader, p PackageReader, r OutstandingReader, s settings.Service) Service {
	return &service{wallets: w, packages: p, rentals: r, settings: s}
}

func (s *service) Calculate(ctx context.Context, userID int64, req Request) (*Breakdown, error) {
	target, err := s.resolveTarget(ctx, req)
	if err != nil {
		return nil, err
	}
	if target.Sign() <= 0 {
		return nil, errors.New("target amount must be positive")
	}

	w, err := s.wallets.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rate := snap.Decimal(settings.KeyPointsRate, decimal.Zero)
	increment := snap.Decimal(settings.KeyTopupIncrement, decimal.Zero)

	return Waterfall(target, w.Points, w.Balance, rate, increment), nil
}

// Waterfall is the pure allocation step: points first, wallet second,
// remainder is the shortfall.
func Waterfall(target, points, wallet, rate, topupIncrement decimal.Decimal) *Breakdown {
	pointsValue := points.Mul(rate)
	fromPoints := decimal.Min(pointsValue, target)
	if fromPoints.Sign() < 0 {
		fromPoints = decimal.Zero
	}

	pointsUsed := decimal.Zero
	if rate.Sign() > 0 {
		pointsUsed = fromPoints.Div(rate)
	}

	afterPoints := target.Sub(fromPoints)
	fromWallet := decimal.Min(wallet, afterPoints)
	if fromWallet.Sign() < 0 {
		fromWallet = decimal.Zero
	}

	shortfall := afterPoints.Sub(fromWallet)

	suggested := decimal.Zero
	if shortfall.Sign() > 0 {
		suggested = shortfall
		if topupIncrement.Sign() > 0 {
			suggested = shortfall.Div(topupIncrement).Ceil().Mul(topupIncrement)
		}
	}

	return &Breakdown{
		Target:         target,
		FromPoints:     fromPoints,
		PointsUsed:     pointsUsed,
		FromWallet:     fromWallet,
		Shortfall:      shortfall,
		SuggestedTopup: suggested,
		PointsAfter:    points.Sub(pointsUsed),
		WalletAfter:    wallet.Sub(afterPoints),
		Sufficient:     shortfall.Sign() == 0,
	}
}

func (s *service) resolveTarget(ctx context.Context, req Request) (decimal.Decimal, error) {
	switch req.Scenario {
	case ScenarioAmount:
		return req.Amount, nil
	case ScenarioPackage:
		p, err := s.packages.GetPackage(ctx, req.PackageID)
		if err != nil {
			return decimal.Zero, err
		}
		return p.Price, nil
	case ScenarioRental:
		return s.rentals.OutstandingAmount(ctx, req.RentalID)
	}
	return decimal.Zero, errors.New("unknown scenario")
}
