// Package settings exposes operator-tunable knobs as a typed snapshot with a
// short refresh interval, so a value changed in the settings table applies
// within seconds and raw key lookups stay out of business logic.
package settings

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	settingsrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/settings"
)

const (
	KeyActiveGateway         = "ACTIVE_PAYMENT_GATEWAY"
	KeyFallbackGateway       = "FALLBACK_PAYMENT_GATEWAY"
	KeyIntentTTLMinutes      = "PAYMENT_INTENT_TTL_MINUTES"
	KeyPointsRate            = "POINTS_CONVERSION_RATE"
	KeyTopupIncrement        = "TOPUP_INCREMENT"
	KeyCancellationWindowMin = "RENTAL_CANCELLATION_WINDOW_MINUTES"
	KeyCancelSameStationOnly = "CANCELLATION_REQUIRE_SAME_STATION"
	KeySyncFreshnessMinutes  = "HARDWARE_SYNC_FRESHNESS_MINUTES"
	KeyStaleSyncBlocks       = "HARDWARE_SYNC_STALE_BLOCKS"
	KeyLateFeeRateDefault    = "LATE_FEE_RATE_DEFAULT"
	KeyLateFeeCapDefault     = "LATE_FEE_CAP_DEFAULT"
)

// refreshTTL keeps reads cheap while still picking up operator edits quickly.
const refreshTTL = 5 * time.Second

type Service interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Snapshot is an immutable view of the active settings at one moment.
type Snapshot struct {
	values map[string]string
}

func NewSnapshot(values map[string]string) Snapshot { return Snapshot{values: values} }

func (s Snapshot) String(key, def string) string {
	if v, ok := s.values[key]; ok && v != "" {
		return v
	}
	return def
}

func (s Snapshot) Decimal(key string, def decimal.Decimal) decimal.Decimal {
	if v, ok := s.values[key]; ok {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func (s Snapshot) Int(key string, def int) int {
	if v, ok := s.values[key]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func (s Snapshot) Minutes(key string, def time.Duration) time.Duration {
	if v, ok := s.values[key]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return time.Duration(n) * time.Minute
		}
	}
	return def
}

func (s Snapshot) Bool(key string, def bool) bool {
	if v, ok := s.values[key]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

type service struct {
	r   settingsrepo.Repo
	now func() time.Time

	mu        sync.Mutex
	cached    Snapshot
	fetchedAt time.Time
}

func New(r settingsrepo.Repo) Service {
	return &service{r: r, now: time.Now}
}

func (s *service) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fetchedAt.IsZero() || s.now().Sub(s.fetchedAt) > refreshTTL {
		values, err := s.r.LoadActive(ctx)
		if err != nil {
			// Serve the last good snapshot if we have one.
			if !s.fetchedAt.IsZero() {
				return s.cached, nil
			}
			return Snapshot{}, err
		}
		s.cached = Snapshot{values: values}
		s.fetchedAt = s.now()
	}
	return s.cached, nil
}
