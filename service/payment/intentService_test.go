package paymentsvc

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/itzmejanak/ChargeGhar-sub001/model"
	gatewayrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/gateway"
	"github.com/itzmejanak/ChargeGhar-sub001/service/settings"
	"github.com/itzmejanak/ChargeGhar-sub001/util/apperr"
)

type intentMock struct {
	insertFn    func(ctx context.Context, in *model.PaymentIntent) (int64, error)
	hasActiveFn func(ctx context.Context, userID int64, purpose model.IntentPurpose, rentalID *int64) (bool, error)
	getFn       func(ctx context.Context, publicID string) (*model.PaymentIntent, error)
	expireFn    func(ctx context.Context, now time.Time) (int64, error)
}

func (m *intentMock) Insert(ctx context.Context, in *model.PaymentIntent) (int64, error) {
	return m.insertFn(ctx, in)
}
func (m *intentMock) HasActiveForScope(ctx context.Context, userID int64, purpose model.IntentPurpose, rentalID *int64) (bool, error) {
	return m.hasActiveFn(ctx, userID, purpose, rentalID)
}
func (m *intentMock) GetByPublicID(ctx context.Context, publicID string) (*model.PaymentIntent, error) {
	return m.getFn(ctx, publicID)
}
func (m *intentMock) GetByGatewayRef(ctx context.Context, gateway, ref string) (*model.PaymentIntent, error) {
	panic("unexpected GetByGatewayRef")
}
func (m *intentMock) Transition(ctx context.Context, tx *sql.Tx, intentID int64, from []model.IntentStatus, to model.IntentStatus, failureReason *string) (bool, error) {
	panic("unexpected Transition")
}
func (m *intentMock) InsertTransaction(ctx context.Context, tx *sql.Tx, intentID int64, gatewayTxnID string, amount decimal.Decimal) (bool, error) {
	panic("unexpected InsertTransaction")
}
func (m *intentMock) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	return m.expireFn(ctx, now)
}

type gatewayMock struct {
	name       string
	initiateFn func(ctx context.Context, req gatewayrepo.InitiateReq) (*gatewayrepo.InitiateResp, error)
}

func (g *gatewayMock) Name() string { return g.name }
func (g *gatewayMock) Initiate(ctx context.Context, req gatewayrepo.InitiateReq) (*gatewayrepo.InitiateResp, error) {
	return g.initiateFn(ctx, req)
}
func (g *gatewayMock) ValidateCallback(signature string, raw []byte) error { return nil }
func (g *gatewayMock) CorrelationKey(raw []byte) (string, error)           { return "", nil }
func (g *gatewayMock) Verify(ctx context.Context, raw []byte) (*gatewayrepo.VerifyResult, error) {
	return nil, nil
}

type settingsStub struct{ snap settings.Snapshot }

func (s *settingsStub) Snapshot(ctx context.Context) (settings.Snapshot, error) { return s.snap, nil }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func okGateway(name string) *gatewayMock {
	return &gatewayMock{
		name: name,
		initiateFn: func(ctx context.Context, req gatewayrepo.InitiateReq) (*gatewayrepo.InitiateResp, error) {
			return &gatewayrepo.InitiateResp{Reference: name + "-ref", RedirectURL: "https://pay.example/" + name}, nil
		},
	}
}

func newService(intents *intentMock, snap settings.Snapshot, gates ...gatewayrepo.Adapter) *service {
	s := New(intents, gatewayrepo.NewRegistry(gates...), &settingsStub{snap: snap}, "http://localhost:8080", quiet()).(*service)
	s.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }
	return s
}

func topupSnap(extra map[string]string) settings.Snapshot {
	values := map[string]string{
		settings.KeyActiveGateway:    "khalti",
		settings.KeyIntentTTLMinutes: "20",
	}
	for k, v := range extra {
		values[k] = v
	}
	return settings.NewSnapshot(values)
}

func TestCreate_Topup(t *testing.T) {
	var stored *model.PaymentIntent
	intents := &intentMock{
		hasActiveFn: func(ctx context.Context, userID int64, purpose model.IntentPurpose, rentalID *int64) (bool, error) {
			return false, nil
		},
		insertFn: func(ctx context.Context, in *model.PaymentIntent) (int64, error) {
			stored = in
			return 1, nil
		},
	}
	s := newService(intents, topupSnap(nil), okGateway("khalti"))

	created, err := s.Create(context.Background(), 7, model.PurposeWalletTopup, CreateParams{
		Amount: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, model.IntentPending, stored.Status)
	require.Equal(t, "khalti", stored.Gateway)
	require.NotNil(t, stored.GatewayRef)
	require.Equal(t, "khalti-ref", *stored.GatewayRef)
	require.Equal(t, "NPR", stored.Currency, "currency defaults")

	require.Equal(t, stored.PublicID, created.IntentID)
	require.Equal(t, "https://pay.example/khalti", created.GatewayURL)
	require.Equal(t, s.now().Add(20*time.Minute), created.ExpiresAt)
}

func TestCreate_RejectsNonPositiveAmount(t *testing.T) {
	s := newService(&intentMock{}, topupSnap(nil), okGateway("khalti"))
	_, err := s.Create(context.Background(), 7, model.PurposeWalletTopup, CreateParams{
		Amount: decimal.Zero,
	})
	require.Error(t, err)
}

func TestCreate_RejectsSubPaisaAmount(t *testing.T) {
	s := newService(&intentMock{}, topupSnap(nil), okGateway("khalti"))
	_, err := s.Create(context.Background(), 7, model.PurposeWalletTopup, CreateParams{
		Amount: decimal.RequireFromString("10.005"),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "two decimal places")
}

func TestCreate_RentalPurposeRequiresRental(t *testing.T) {
	s := newService(&intentMock{}, topupSnap(nil), okGateway("khalti"))
	_, err := s.Create(context.Background(), 7, model.PurposeRentalCharge, CreateParams{
		Amount: decimal.NewFromInt(100),
	})
	require.Error(t, err)
}

func TestCreate_DuplicateScope(t *testing.T) {
	intents := &intentMock{
		hasActiveFn: func(ctx context.Context, userID int64, purpose model.IntentPurpose, rentalID *int64) (bool, error) {
			return true, nil
		},
	}
	s := newService(intents, topupSnap(nil), okGateway("khalti"))
	_, err := s.Create(context.Background(), 7, model.PurposeWalletTopup, CreateParams{
		Amount: decimal.NewFromInt(500),
	})
	require.Equal(t, apperr.CodeDuplicateIntent, apperr.CodeOf(err))
}

func TestCreate_FallbackGateway(t *testing.T) {
	down := &gatewayMock{
		name: "khalti",
		initiateFn: func(ctx context.Context, req gatewayrepo.InitiateReq) (*gatewayrepo.InitiateResp, error) {
			return nil, errors.New("connect: connection refused")
		},
	}
	var stored *model.PaymentIntent
	intents := &intentMock{
		hasActiveFn: func(ctx context.Context, userID int64, purpose model.IntentPurpose, rentalID *int64) (bool, error) {
			return false, nil
		},
		insertFn: func(ctx context.Context, in *model.PaymentIntent) (int64, error) {
			stored = in
			return 1, nil
		},
	}
	snap := topupSnap(map[string]string{settings.KeyFallbackGateway: "esewa"})
	s := newService(intents, snap, down, okGateway("esewa"))

	created, err := s.Create(context.Background(), 7, model.PurposeWalletTopup, CreateParams{
		Amount: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	require.Equal(t, "esewa", stored.Gateway, "intent records the gateway that actually initiated")
	require.Equal(t, "https://pay.example/esewa", created.GatewayURL)
}

func TestCreate_NoFallbackConfigured(t *testing.T) {
	down := &gatewayMock{
		name: "khalti",
		initiateFn: func(ctx context.Context, req gatewayrepo.InitiateReq) (*gatewayrepo.InitiateResp, error) {
			return nil, errors.New("connect: connection refused")
		},
	}
	intents := &intentMock{
		hasActiveFn: func(ctx context.Context, userID int64, purpose model.IntentPurpose, rentalID *int64) (bool, error) {
			return false, nil
		},
	}
	s := newService(intents, topupSnap(nil), down)
	_, err := s.Create(context.Background(), 7, model.PurposeWalletTopup, CreateParams{
		Amount: decimal.NewFromInt(500),
	})
	require.Error(t, err)
}

func TestStatus_OwnershipEnforced(t *testing.T) {
	intents := &intentMock{
		getFn: func(ctx context.Context, publicID string) (*model.PaymentIntent, error) {
			return &model.PaymentIntent{PublicID: publicID, UserID: 7}, nil
		},
	}
	s := newService(intents, topupSnap(nil), okGateway("khalti"))

	_, err := s.Status(context.Background(), 99, "some-id")
	require.Equal(t, apperr.CodeNotOwner, apperr.CodeOf(err))

	in, err := s.Status(context.Background(), 7, "some-id")
	require.NoError(t, err)
	require.Equal(t, "some-id", in.PublicID)
}

func TestStatus_NotFound(t *testing.T) {
	intents := &intentMock{
		getFn: func(ctx context.Context, publicID string) (*model.PaymentIntent, error) {
			return nil, sql.ErrNoRows
		},
	}
	s := newService(intents, topupSnap(nil), okGateway("khalti"))
	_, err := s.Status(context.Background(), 7, "missing")
	require.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestExpireStale_PassesClock(t *testing.T) {
	var got time.Time
	intents := &intentMock{
		expireFn: func(ctx context.Context, now time.Time) (int64, error) {
			got = now
			return 3, nil
		},
	}
	s := newService(intents, topupSnap(nil), okGateway("khalti"))
	n, err := s.ExpireStale(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.Equal(t, s.now().UTC(), got)
}
