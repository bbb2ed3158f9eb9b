// repository/rental/rentalRepository.go
package rentalrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itzmejanak/ChargeGhar-sub001/model"
)

type HistoryRow struct {
	RentalID        int64            `json:"rental_id"`
	PackageID       int64            `json:"package_id"`
	PackageName     string           `json:"package_name"`
	UnitID          int64            `json:"unit_id"`
	Status          string           `json:"status"`
	StartedAt       time.Time        `json:"started_at"`
	DurationMinutes int              `json:"duration_minutes"`
	LateFee         *decimal.Decimal `json:"late_fee,omitempty"`
	EndedAt         *time.Time       `json:"ended_at,omitempty"`
}

type Repo interface {
	Get(ctx context.Context, rentalID int64) (*model.Rental, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, rentalID int64) (*model.Rental, error)
	GetPackage(ctx context.Context, packageID int64) (*model.Package, error)
	ListPackages(ctx context.Context) ([]model.Package, error)
	ListMyRentals(ctx context.Context, userID int64) ([]HistoryRow, error)

	// Terminal transitions: conditional on the rental still being ACTIVE.
	Complete(ctx context.Context, tx *sql.Tx, rentalID int64, frozenFee decimal.Decimal, endedAt time.Time) (bool, error)
	Cancel(ctx context.Context, tx *sql.Tx, rentalID int64, endedAt time.Time) (bool, error)
	ExtendDuration(ctx context.Context, tx *sql.Tx, rentalID int64, addMinutes int) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

const rentalCols = `
id, user_id, station_id, unit_id, package_id, status, started_at,
duration_minutes, late_fee, ended_at`

func scanRental(row *sql.Row) (*model.Rental, error) {
	var r model.Rental
	err := row.Scan(
		&r.ID, &r.UserID, &r.StationID, &r.UnitID, &r.PackageID, &r.Status,
		&r.StartedAt, &r.DurationMinutes, &r.LateFee, &r.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *repo) Get(ctx context.Context, rentalID int64) (*model.Rental, error) {
	const q = `SELECT ` + rentalCols + ` FROM rentals WHERE id=$1`
	return scanRental(r.db.QueryRowContext(ctx, q, rentalID))
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, rentalID int64) (*model.Rental, error) {
	const q = `SELECT ` + rentalCols + ` FROM rentals WHERE id=$1 FOR UPDATE`
	return scanRental(tx.QueryRowContext(ctx, q, rentalID))
}

func (r *repo) GetPackage(ctx context.Context, packageID int64) (*model.Package, error) {
	const q = `
SELECT id, name, duration_minutes, price, late_fee_rate, late_fee_cap
FROM packages
WHERE id=$1 AND active`
	var p model.Package
	err := r.db.QueryRowContext(ctx, q, packageID).Scan(
		&p.ID, &p.Name, &p.DurationMinutes, &p.Price, &p.LateFeeRate, &p.LateFeeCap,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) ListPackages(ctx context.Context) ([]model.Package, error) {
	const q = `
SELECT id, name, duration_minutes, price, late_fee_rate, late_fee_cap
FROM packages
WHERE active
ORDER BY duration_minutes`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Package
	for rows.Next() {
		var p model.Package
		if err := rows.Scan(&p.ID, &p.Name, &p.DurationMinutes, &p.Price, &p.LateFeeRate, &p.LateFeeCap); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repo) ListMyRentals(ctx context.Context, userID int64) ([]HistoryRow, error) {
	const q = `
SELECT
  r.id               AS rental_id,
  r.package_id       AS package_id,
  p.name             AS package_name,
  r.unit_id          AS unit_id,
  r.status           AS status,
  r.started_at       AS started_at,
  r.duration_minutes AS duration_minutes,
  r.late_fee         AS late_fee,
  r.ended_at         AS ended_at
FROM rentals r
JOIN packages p ON p.id = r.package_id
WHERE r.user_id = $1
ORDER BY r.started_at DESC, r.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(
			&h.RentalID, &h.PackageID, &h.PackageName, &h.UnitID, &h.Status,
			&h.StartedAt, &h.DurationMinutes, &h.LateFee, &h.EndedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *repo) Complete(ctx context.Context, tx *sql.Tx, rentalID int64, frozenFee decimal.Decimal, endedAt time.Time) (bool, error) {
	const q = `
UPDATE rentals
SET status='COMPLETED', late_fee=$2, ended_at=$3
WHERE id=$1 AND status='ACTIVE'`
	res, err := tx.ExecContext(ctx, q, rentalID, frozenFee, endedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *repo) Cancel(ctx context.Context, tx *sql.Tx, rentalID int64, endedAt time.Time) (bool, error) {
	const q = `
UPDATE rentals
SET status='CANCELLED', late_fee=0, ended_at=$2
WHERE id=$1 AND status='ACTIVE'`
	res, err := tx.ExecContext(ctx, q, rentalID, endedAt)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *repo) ExtendDuration(ctx context.Context, tx *sql.Tx, rentalID int64, addMinutes int) (bool, error) {
	const q = `
UPDATE rentals
SET duration_minutes = duration_minutes + $2
WHERE id=$1 AND status='ACTIVE'`
	res, err := tx.ExecContext(ctx, q, rentalID, addMinutes)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
