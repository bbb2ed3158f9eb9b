// Package webhooksvc drives settlement from asynchronous provider
// notifications. Delivery is at-least-once and out-of-order; the effect must
// be exactly-once, keyed on intent id plus provider transaction id.
package webhooksvc

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/itzmejanak/ChargeGhar-sub001/model"
	gatewayrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/gateway"
	intentrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/intent"
	walletrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/wallet"
	"github.com/itzmejanak/ChargeGhar-sub001/util/apperr"
)

// SettlementHook receives the settled intent inside the settlement
// transaction, so the rental-side effect commits atomically with it.
type SettlementHook interface {
	OnSettled(ctx context.Context, tx *sql.Tx, intent *model.PaymentIntent) error
}

type Reconciler interface {
	// Process runs the full pipeline for one notification. Errors carry an
	// apperr code the worker uses to pick retry/dead-letter handling.
	Process(ctx context.Context, provider, signature string, raw []byte) error

	// FailAfterRetries force-fails the referenced intent once the
	// verification retry budget is spent.
	FailAfterRetries(ctx context.Context, provider, signature string, raw []byte, reason string) error
}

type reconciler struct {
	db      *sql.DB
	intents intentrepo.Repo
	wallets walletrepo.Repo
	gates   *gatewayrepo.Registry
	rentals SettlementHook
	log     *slog.Logger
}

func NewReconciler(db *sql.DB, intents intentrepo.Repo, wallets walletrepo.Repo, gates *gatewayrepo.Registry, rentals SettlementHook, log *slog.Logger) Reconciler {
	return &reconciler{db: db, intents: intents, wallets: wallets, gates: gates, rentals: rentals, log: log}
}

func (s *reconciler) resolve(ctx context.Context, provider, signature string, raw []byte) (gatewayrepo.Adapter, *model.PaymentIntent, error) {
	adapter, err := s.gates.Get(provider)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.CodeInvalidWebhook, "unknown provider", err)
	}
	if err := adapter.ValidateCallback(signature, raw); err != nil {
		return nil, nil, err
	}
	key, err := adapter.CorrelationKey(raw)
	if err != nil {
		return nil, nil, err
	}
	intent, err := s.intents.GetByGatewayRef(ctx, provider, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, apperr.Newf(apperr.CodeUnresolvedIntent, "no intent for %s reference %q", provider, key)
	}
	if err != nil {
		return nil, nil, err
	}
	return adapter, intent, nil
}

func (s *reconciler) Process(ctx context.Context, provider, signature string, raw []byte) error {
	adapter, intent, err := s.resolve(ctx, provider, signature, raw)
	if err != nil {
		return err
	}

	// Replays against a settled intent are a no-op, not an error.
	if intent.Status.Terminal() {
		s.log.Info("webhook replay on terminal intent ignored",
			"intent_id", intent.PublicID, "status", intent.Status)
		return nil
	}

	// Mark the attempt. Losing this race to another worker is fine; the
	// settlement transition below stays conditional either way.
	if intent.Status == model.IntentPending {
		if _, err := s.intents.Transition(ctx, nil, intent.ID,
			model.TransitionSources(model.IntentProcessing), model.IntentProcessing, nil); err != nil {
			return err
		}
	}

	res, err := adapter.Verify(ctx, raw)
	if err != nil {
		return err
	}
	if !res.Success {
		reason := "gateway reported payment unsuccessful"
		return s.fail(ctx, intent, reason)
	}
	if !res.Amount.Equal(intent.Amount) {
		reason := "verified amount differs from intent amount"
		s.log.Error("settlement amount mismatch",
			"intent_id", intent.PublicID, "intent_amount", intent.Amount, "verified_amount", res.Amount)
		return s.fail(ctx, intent, reason)
	}

	return s.settle(ctx, intent, res)
}

func (s *reconciler) fail(ctx context.Context, intent *model.PaymentIntent, reason string) error {
	ok, err := s.intents.Transition(ctx, nil, intent.ID,
		model.TransitionSources(model.IntentFailed), model.IntentFailed, &reason)
	if err != nil {
		return err
	}
	if ok {
		s.log.Warn("payment intent failed", "intent_id", intent.PublicID, "reason", reason)
	}
	return nil
}

// settle applies the intent transition, the transaction record, the ledger
// effects and the rental hook in one database transaction: they succeed or
// fail together.
func (s *reconciler) settle(ctx context.Context, intent *model.PaymentIntent, res *gatewayrepo.VerifyResult) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ok, err := s.intents.Transition(ctx, tx, intent.ID,
		model.TransitionSources(model.IntentCompleted), model.IntentCompleted, nil)
	if err != nil {
		return err
	}
	if !ok {
		_ = tx.Rollback()
		cur, readErr := s.intents.GetByPublicID(ctx, intent.PublicID)
		if readErr == nil && cur.Status == model.IntentExpired {
			// The expiry sweep won the race after the gateway took the money.
			// Someone has to reconcile this by hand.
			return apperr.Newf(apperr.CodeExpiredIntent,
				"verified payment %s arrived for expired intent %s", res.ExternalTxnID, intent.PublicID)
		}
		// Competing settlement won; nothing left to apply.
		return nil
	}

	inserted, err := s.intents.InsertTransaction(ctx, tx, intent.ID, res.ExternalTxnID, res.Amount)
	if err != nil {
		return err
	}
	if !inserted {
		_ = tx.Rollback()
		return nil
	}

	switch intent.Purpose {
	case model.PurposeWalletTopup:
		if _, err = s.wallets.CreditTx(ctx, tx, intent.UserID, intent.Amount,
			model.LedgerTopup, "payment_intents", &intent.ID); err != nil {
			return err
		}
	case model.PurposeRentalCharge, model.PurposeExtension:
		if intent.WalletPortion.Sign() > 0 {
			if _, err = s.wallets.DebitTx(ctx, tx, intent.UserID, intent.WalletPortion,
				model.LedgerCharge, "payment_intents", &intent.ID); err != nil {
				if errors.Is(err, walletrepo.ErrInsufficientFunds) {
					err = apperr.Wrap(apperr.CodeInsufficientBalance,
						"wallet portion no longer covered at settlement", err)
				}
				return err
			}
		}
		if intent.PointsPortion.Sign() > 0 {
			if err = s.wallets.RedeemPointsTx(ctx, tx, intent.UserID, intent.PointsPortion,
				"payment_intents", &intent.ID); err != nil {
				if errors.Is(err, walletrepo.ErrInsufficientFunds) {
					err = apperr.Wrap(apperr.CodeInsufficientBalance,
						"points portion no longer covered at settlement", err)
				}
				return err
			}
		}
	}

	if err = s.rentals.OnSettled(ctx, tx, intent); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	s.log.Info("payment settled",
		"intent_id", intent.PublicID, "purpose", intent.Purpose,
		"gateway_txn_id", res.ExternalTxnID, "amount", res.Amount)
	return nil
}

func (s *reconciler) FailAfterRetries(ctx context.Context, provider, signature string, raw []byte, reason string) error {
	_, intent, err := s.resolve(ctx, provider, signature, raw)
	if err != nil {
		return err
	}
	if intent.Status.Terminal() {
		return nil
	}
	return s.fail(ctx, intent, reason)
}
