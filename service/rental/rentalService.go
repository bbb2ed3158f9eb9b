package rental

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itzmejanak/ChargeGhar-sub001/model"
	rentalrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/rental"
	stationrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/station"
	walletrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/wallet"
	"github.com/itzmejanak/ChargeGhar-sub001/service/settings"
	"github.com/itzmejanak/ChargeGhar-sub001/util/apperr"
)

// View is the live read model: OVERDUE is derived on every read, never a
// stored state.
type View struct {
	Rental         model.Rental    `json:"rental"`
	Overdue        bool            `json:"overdue"`
	OverdueMinutes int64           `json:"overdue_minutes"`
	LateFee        decimal.Decimal `json:"late_fee"`
	EstimatedTotal decimal.Decimal `json:"estimated_total"`
}

type HistoryRow = rentalrepo.HistoryRow

type Service interface {
	Detail(ctx context.Context, userID, rentalID int64) (*View, error)
	MyHistory(ctx context.Context, userID int64) ([]HistoryRow, error)
	ListPackages(ctx context.Context) ([]model.Package, error)

	// OutstandingAmount is what still has to be paid on a rental right now.
	OutstandingAmount(ctx context.Context, rentalID int64) (decimal.Decimal, error)

	Cancel(ctx context.Context, userID, rentalID int64) error

	// OnSettled runs inside the reconciler's settlement transaction and
	// applies the rental-side effect of a completed payment.
	OnSettled(ctx context.Context, tx *sql.Tx, intent *model.PaymentIntent) error
}

type service struct {
	db       *sql.DB
	r        rentalrepo.Repo
	stations stationrepo.Repo
	wallets  walletrepo.Repo
	settings settings.Service
	log      *slog.Logger
	now      func() time.Time
}

func New(db *sql.DB, r rentalrepo.Repo, st stationrepo.Repo, w walletrepo.Repo, s settings.Service, log *slog.Logger) Service {
	return &service{db: db, r: r, stations: st, wallets: w, settings: s, log: log, now: time.Now}
}

// feeConfig resolves the per-package rate table with global defaults.
func feeConfig(pkg *model.Package, snap settings.Snapshot) model.LateFeeConfig {
	cfg := model.LateFeeConfig{
		RatePerMinute: snap.Decimal(settings.KeyLateFeeRateDefault, decimal.Zero),
		Cap:           snap.Decimal(settings.KeyLateFeeCapDefault, decimal.Zero),
	}
	if pkg != nil {
		if pkg.LateFeeRate != nil {
			cfg.RatePerMinute = *pkg.LateFeeRate
		}
		if pkg.LateFeeCap != nil {
			cfg.Cap = *pkg.LateFeeCap
		}
	}
	return cfg
}

func (s *service) view(ctx context.Context, r *model.Rental) (*View, error) {
	pkg, err := s.r.GetPackage(ctx, r.PackageID)
	if err != nil {
		return nil, err
	}
	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	fee := r.LateFeeAt(now, feeConfig(pkg, snap))
	return &View{
		Rental:         *r,
		Overdue:        r.Status == model.RentalActive && r.OverdueMinutes(now) > 0,
		OverdueMinutes: r.OverdueMinutes(now),
		LateFee:        fee,
		EstimatedTotal: pkg.Price.Add(fee),
	}, nil
}

func (s *service) Detail(ctx context.Context, userID, rentalID int64) (*View, error) {
	r, err := s.r.Get(ctx, rentalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "rental not found")
	}
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, apperr.New(apperr.CodeNotOwner, "rental belongs to another user")
	}
	return s.view(ctx, r)
}

func (s *service) MyHistory(ctx context.Context, userID int64) ([]HistoryRow, error) {
	return s.r.ListMyRentals(ctx, userID)
}

func (s *service) ListPackages(ctx context.Context) ([]model.Package, error) {
	return s.r.ListPackages(ctx)
}

func (s *service) OutstandingAmount(ctx context.Context, rentalID int64) (decimal.Decimal, error) {
	r, err := s.r.Get(ctx, rentalID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, apperr.New(apperr.CodeNotFound, "rental not found")
	}
	if err != nil {
		return decimal.Zero, err
	}
	if r.Status.Terminal() {
		// Terminal rentals have settled; nothing left to pay.
		return decimal.Zero, nil
	}
	v, err := s.view(ctx, r)
	if err != nil {
		return decimal.Zero, err
	}
	return v.LateFee, nil
}

// CancellationPolicy is read from the Configuration Store at evaluation
// time; operators tune it without a deploy.
type CancellationPolicy struct {
	Window             time.Duration
	RequireSameStation bool
	SyncFreshness      time.Duration
	StaleSyncBlocks    bool
}

func policyFrom(snap settings.Snapshot) CancellationPolicy {
	return CancellationPolicy{
		Window:             snap.Minutes(settings.KeyCancellationWindowMin, 5*time.Minute),
		RequireSameStation: snap.Bool(settings.KeyCancelSameStationOnly, false),
		SyncFreshness:      snap.Minutes(settings.KeySyncFreshnessMinutes, 10*time.Minute),
		StaleSyncBlocks:    snap.Bool(settings.KeyStaleSyncBlocks, false),
	}
}

// EvaluateCancellation runs the safety checks against the last hardware
// state. It returns a non-empty warning for a stale sync that policy does
// not escalate.
func EvaluateCancellation(r model.Rental, p model.UnitPlacement, pol CancellationPolicy, now time.Time) (warning string, err error) {
	if r.Status != model.RentalActive {
		return "", apperr.New(apperr.CodeCancellationNotEligible, "rental is not active")
	}
	if now.Sub(r.StartedAt) > pol.Window {
		return "", apperr.New(apperr.CodeCancellationNotEligible, "cancellation window elapsed")
	}
	if p.StationID == nil {
		return "", apperr.New(apperr.CodeCancellationNotEligible, "unit is not docked at a station")
	}
	if pol.RequireSameStation && *p.StationID != r.StationID {
		return "", apperr.New(apperr.CodeCancellationNotEligible, "unit is not at the origin station")
	}
	if p.SlotNumber == nil {
		return "", apperr.New(apperr.CodeCancellationNotEligible, "unit does not occupy a slot")
	}
	if p.SlotState != model.SlotOccupied {
		return "", apperr.New(apperr.CodeCancellationNotEligible, "slot state is not OCCUPIED")
	}
	if now.Sub(p.LastSyncedAt) > pol.SyncFreshness {
		if pol.StaleSyncBlocks {
			return "", apperr.New(apperr.CodeCancellationNotEligible, "hardware sync is stale")
		}
		return "hardware sync is stale", nil
	}
	return "", nil
}

func (s *service) Cancel(ctx context.Context, userID, rentalID int64) (err error) {
	r, err := s.r.Get(ctx, rentalID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.CodeNotFound, "rental not found")
	}
	if err != nil {
		return err
	}
	if r.UserID != userID {
		return apperr.New(apperr.CodeNotOwner, "rental belongs to another user")
	}

	placement, err := s.stations.GetUnitPlacement(ctx, r.UnitID)
	if err != nil {
		return err
	}
	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return err
	}

	warning, err := EvaluateCancellation(*r, *placement, policyFrom(snap), s.now())
	if err != nil {
		return err
	}
	if warning != "" {
		s.log.Warn("cancellation proceeding with stale hardware sync",
			"rental_id", rentalID, "last_synced_at", placement.LastSyncedAt)
	}

	pkg, err := s.r.GetPackage(ctx, r.PackageID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ok, err := s.r.Cancel(ctx, tx, rentalID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		// A competing writer took the rental terminal first.
		return apperr.New(apperr.CodeInvalidStateTransition, "rental is no longer active")
	}

	// Refund the package price paid up front.
	if _, err = s.wallets.CreditTx(ctx, tx, userID, pkg.Price, model.LedgerRefund, "rentals", &rentalID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *service) OnSettled(ctx context.Context, tx *sql.Tx, intent *model.PaymentIntent) error {
	if intent.RentalID == nil {
		return nil
	}
	switch intent.Purpose {
	case model.PurposeRentalCharge:
		r, err := s.r.GetForUpdate(ctx, tx, *intent.RentalID)
		if err != nil {
			return err
		}
		if r.Status.Terminal() {
			return nil
		}
		pkg, err := s.r.GetPackage(ctx, r.PackageID)
		if err != nil {
			return err
		}
		snap, err := s.settings.Snapshot(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		frozen := r.LateFeeAt(now, feeConfig(pkg, snap))
		ok, err := s.r.Complete(ctx, tx, r.ID, frozen, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.CodeInvalidStateTransition, "rental is no longer active")
		}
		s.log.Info("rental completed by settlement", "rental_id", r.ID, "late_fee", frozen)
		return nil

	case model.PurposeExtension:
		r, err := s.r.GetForUpdate(ctx, tx, *intent.RentalID)
		if err != nil {
			return err
		}
		if r.Status.Terminal() {
			return apperr.New(apperr.CodeInvalidStateTransition, "cannot extend a terminal rental")
		}
		pkg, err := s.r.GetPackage(ctx, r.PackageID)
		if err != nil {
			return err
		}
		ok, err := s.r.ExtendDuration(ctx, tx, r.ID, pkg.DurationMinutes)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.CodeInvalidStateTransition, "rental is no longer active")
		}
		s.log.Info("rental extended by settlement", "rental_id", r.ID, "minutes", pkg.DurationMinutes)
		return nil
	}
	return nil
}
