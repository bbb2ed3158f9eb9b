package intentrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itzmejanak/ChargeGhar-sub001/model"
)

type Repo interface {
	Insert(ctx context.Context, in *model.PaymentIntent) (int64, error)
	HasActiveForScope(ctx context.Context, userID int64, purpose model.IntentPurpose, rentalID *int64) (bool, error)
	GetByPublicID(ctx context.Context, publicID string) (*model.PaymentIntent, error)
	GetByGatewayRef(ctx context.Context, gateway, ref string) (*model.PaymentIntent, error)

	// Transition flips status only when the row still holds one of the
	// expected states; zero rows means a competing writer got there first.
	Transition(ctx context.Context, tx *sql.Tx, intentID int64, from []model.IntentStatus, to model.IntentStatus, failureReason *string) (bool, error)
	InsertTransaction(ctx context.Context, tx *sql.Tx, intentID int64, gatewayTxnID string, amount decimal.Decimal) (bool, error)

	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const intentCols = `
id, public_id, user_id, purpose, amount, wallet_portion, points_portion,
currency, status, gateway, gateway_ref, rental_id, failure_reason,
expires_at, created_at, completed_at`

func scanIntent(row *sql.Row) (*model.PaymentIntent, error) {
	var in model.PaymentIntent
	err := row.Scan(
		&in.ID, &in.PublicID, &in.UserID, &in.Purpose, &in.Amount,
		&in.WalletPortion, &in.PointsPortion, &in.Currency, &in.Status,
		&in.Gateway, &in.GatewayRef, &in.RentalID, &in.FailureReason,
		&in.ExpiresAt, &in.CreatedAt, &in.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func (r *repo) Insert(ctx context.Context, in *model.PaymentIntent) (int64, error) {
	const q = `
INSERT INTO payment_intents
  (public_id, user_id, purpose, amount, wallet_portion, points_portion,
   currency, status, gateway, gateway_ref, rental_id, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING id`
	var id int64
	err := r.db.QueryRowContext(ctx, q,
		in.PublicID, in.UserID, string(in.Purpose), in.Amount,
		in.WalletPortion, in.PointsPortion, in.Currency, string(in.Status),
		in.Gateway, in.GatewayRef, in.RentalID, in.ExpiresAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) HasActiveForScope(ctx context.Context, userID int64, purpose model.IntentPurpose, rentalID *int64) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM payment_intents
  WHERE user_id=$1 AND purpose=$2 AND COALESCE(rental_id,0)=COALESCE($3,0)
    AND status IN ('PENDING','PROCESSING')
)`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, userID, string(purpose), rentalID).Scan(&exists)
	return exists, err
}

func (r *repo) GetByPublicID(ctx context.Context, publicID string) (*model.PaymentIntent, error) {
	const q = `SELECT ` + intentCols + ` FROM payment_intents WHERE public_id=$1`
	return scanIntent(r.db.QueryRowContext(ctx, q, publicID))
}

func (r *repo) GetByGatewayRef(ctx context.Context, gateway, ref string) (*model.PaymentIntent, error) {
	const q = `SELECT ` + intentCols + ` FROM payment_intents WHERE gateway=$1 AND gateway_ref=$2`
	return scanIntent(r.db.QueryRowContext(ctx, q, gateway, ref))
}

func (r *repo) Transition(ctx context.Context, tx *sql.Tx, intentID int64, from []model.IntentStatus, to model.IntentStatus, failureReason *string) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("transition requires expected states")
	}
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	const q = `
UPDATE payment_intents
SET status=$2,
    failure_reason=COALESCE($3, failure_reason),
    completed_at=CASE WHEN $2='COMPLETED' THEN NOW() ELSE completed_at END
WHERE id=$1 AND status = ANY($4)`
	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, q, intentID, string(to), failureReason, states)
	} else {
		res, err = r.db.ExecContext(ctx, q, intentID, string(to), failureReason, states)
	}
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// InsertTransaction is the idempotency anchor: unique (intent_id, gateway_txn_id)
// means a replayed settlement inserts nothing and reports false.
func (r *repo) InsertTransaction(ctx context.Context, tx *sql.Tx, intentID int64, gatewayTxnID string, amount decimal.Decimal) (bool, error) {
	const q = `
INSERT INTO payment_transactions (intent_id, gateway_txn_id, amount)
VALUES ($1,$2,$3)
ON CONFLICT (intent_id, gateway_txn_id) DO NOTHING`
	res, err := tx.ExecContext(ctx, q, intentID, gatewayTxnID, amount)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *repo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	const q = `
UPDATE payment_intents
SET status='EXPIRED'
WHERE status='PENDING' AND expires_at < $1`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
