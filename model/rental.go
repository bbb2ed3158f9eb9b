// model/rental.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type RentalStatus string

const (
	RentalActive    RentalStatus = "ACTIVE"
	RentalCompleted RentalStatus = "COMPLETED"
	RentalCancelled RentalStatus = "CANCELLED"
)

func (s RentalStatus) Terminal() bool { return s == RentalCompleted || s == RentalCancelled }

type Rental struct {
	ID              int64            `json:"id"`
	UserID          int64            `json:"user_id"`
	StationID       int64            `json:"station_id"`
	UnitID          int64            `json:"unit_id"`
	PackageID       int64            `json:"package_id"`
	Status          RentalStatus     `json:"status"`
	StartedAt       time.Time        `json:"started_at"`
	DurationMinutes int              `json:"duration_minutes"`
	LateFee         *decimal.Decimal `json:"late_fee,omitempty"`
	EndedAt         *time.Time       `json:"ended_at,omitempty"`
}

// EndsAt is the moment the paid package runs out.
func (r Rental) EndsAt() time.Time {
	return r.StartedAt.Add(time.Duration(r.DurationMinutes) * time.Minute)
}

type Package struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	DurationMinutes int              `json:"duration_minutes"`
	Price           decimal.Decimal  `json:"price"`
	LateFeeRate     *decimal.Decimal `json:"late_fee_rate,omitempty"`
	LateFeeCap      *decimal.Decimal `json:"late_fee_cap,omitempty"`
}

// LateFeeConfig is the resolved rate table used at evaluation time:
// package-level values with global defaults already applied.
type LateFeeConfig struct {
	RatePerMinute decimal.Decimal
	Cap           decimal.Decimal
}

// OverdueMinutes is the whole minutes elapsed past the package end, never
// negative.
func (r Rental) OverdueMinutes(now time.Time) int64 {
	d := now.Sub(r.EndsAt())
	if d <= 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// LateFeeAt computes min(overdue_minutes × rate, cap). For terminal rentals
// the frozen stored fee wins, so minutes billed at completion are never
// counted twice.
func (r Rental) LateFeeAt(now time.Time, cfg LateFeeConfig) decimal.Decimal {
	if r.Status.Terminal() {
		if r.LateFee != nil {
			return *r.LateFee
		}
		return decimal.Zero
	}
	fee := decimal.NewFromInt(r.OverdueMinutes(now)).Mul(cfg.RatePerMinute)
	if cfg.Cap.IsPositive() && fee.GreaterThan(cfg.Cap) {
		return cfg.Cap
	}
	return fee
}
