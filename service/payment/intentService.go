package paymentsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/itzmejanak/ChargeGhar-sub001/model"
	gatewayrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/gateway"
	intentrepo "github.com/itzmejanak/ChargeGhar-sub001/repository/intent"
	"github.com/itzmejanak/ChargeGhar-sub001/service/settings"
	"github.com/itzmejanak/ChargeGhar-sub001/util/apperr"
)

type CreateParams struct {
	Amount        decimal.Decimal
	Currency      string
	RentalID      *int64
	WalletPortion decimal.Decimal
	PointsPortion decimal.Decimal
}

type Created struct {
	IntentID   string            `json:"intent_id"`
	Status     string            `json:"status"`
	GatewayURL string            `json:"gateway_url,omitempty"`
	FormFields map[string]string `json:"form_fields,omitempty"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

type Service interface {
	Create(ctx context.Context, userID int64, purpose model.IntentPurpose, params CreateParams) (*Created, error)
	Status(ctx context.Context, userID int64, publicID string) (*model.PaymentIntent, error)
	ExpireStale(ctx context.Context) (int64, error)
}

type service struct {
	intents      intentrepo.Repo
	gateways     *gatewayrepo.Registry
	settings     settings.Service
	callbackBase string
	log          *slog.Logger
	now          func() time.Time
}

func New(intents intentrepo.Repo, gateways *gatewayrepo.Registry, s settings.Service, callbackBase string, log *slog.Logger) Service {
	return &service{intents: intents, gateways: gateways, settings: s, callbackBase: callbackBase, log: log, now: time.Now}
}

func (s *service) Create(ctx context.Context, userID int64, purpose model.IntentPurpose, params CreateParams) (*Created, error) {
	if params.Amount.Sign() <= 0 {
		return nil, errors.New("amount must be positive")
	}
	// NPR settles in paisa; a finer fraction would not round-trip through the
	// gateways and the settlement amount check.
	if !params.Amount.Equal(params.Amount.Round(2)) {
		return nil, errors.New("amount must not have more than two decimal places")
	}
	if purpose != model.PurposeWalletTopup && params.RentalID == nil {
		return nil, fmt.Errorf("%s intent requires a rental reference", purpose)
	}
	currency := params.Currency
	if currency == "" {
		currency = "NPR"
	}

	// Exactly one live attempt per (user, purpose, rental) scope.
	exists, err := s.intents.HasActiveForScope(ctx, userID, purpose, params.RentalID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Newf(apperr.CodeDuplicateIntent,
			"a pending %s payment already exists; wait for it to settle or expire", purpose)
	}

	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	ttl := snap.Minutes(settings.KeyIntentTTLMinutes, 15*time.Minute)

	externalID := fmt.Sprintf("%s:%d:%d", strings.ToLower(string(purpose)), userID, s.now().UnixNano())
	adapter, initResp, err := s.initiate(ctx, snap, gatewayrepo.InitiateReq{
		ExternalID:  externalID,
		Amount:      params.Amount,
		Currency:    currency,
		Description: string(purpose),
		ReturnURL:   snap.String("PAYMENT_RETURN_URL", s.callbackBase+"/payments/return"),
		ExpirySec:   int(ttl.Seconds()),
	})
	if err != nil {
		return nil, err
	}

	ref := initResp.Reference
	in := &model.PaymentIntent{
		PublicID:      uuid.NewString(),
		UserID:        userID,
		Purpose:       purpose,
		Amount:        params.Amount,
		WalletPortion: params.WalletPortion,
		PointsPortion: params.PointsPortion,
		Currency:      currency,
		Status:        model.IntentPending,
		Gateway:       adapter.Name(),
		GatewayRef:    &ref,
		RentalID:      params.RentalID,
		ExpiresAt:     s.now().Add(ttl),
	}
	if _, err := s.intents.Insert(ctx, in); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Lost the race to a concurrent create for the same scope.
			return nil, apperr.Newf(apperr.CodeDuplicateIntent,
				"a pending %s payment already exists; wait for it to settle or expire", purpose)
		}
		return nil, err
	}

	s.log.Info("payment intent created",
		"intent_id", in.PublicID, "purpose", purpose, "gateway", adapter.Name(), "amount", params.Amount)

	return &Created{
		IntentID:   in.PublicID,
		Status:     string(in.Status),
		GatewayURL: initResp.RedirectURL,
		FormFields: initResp.FormFields,
		ExpiresAt:  in.ExpiresAt,
	}, nil
}

// initiate tries the configured active provider, falling back once if it is
// unreachable. The fallback only applies at initiation; an intent keeps the
// provider that created it forever.
func (s *service) initiate(ctx context.Context, snap settings.Snapshot, req gatewayrepo.InitiateReq) (gatewayrepo.Adapter, *gatewayrepo.InitiateResp, error) {
	primaryName := snap.String(settings.KeyActiveGateway, "khalti")
	primary, err := s.gateways.Get(primaryName)
	if err != nil {
		return nil, nil, err
	}

	resp, initErr := primary.Initiate(ctx, req)
	if initErr == nil {
		return primary, resp, nil
	}

	fallbackName := snap.String(settings.KeyFallbackGateway, "")
	if fallbackName == "" || fallbackName == primaryName {
		return nil, nil, initErr
	}
	fallback, err := s.gateways.Get(fallbackName)
	if err != nil {
		return nil, nil, initErr
	}

	s.log.Warn("active gateway unreachable, using fallback",
		"active", primaryName, "fallback", fallbackName, "err", initErr)

	resp, err = fallback.Initiate(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("both gateways failed: %v; fallback: %w", initErr, err)
	}
	return fallback, resp, nil
}

func (s *service) Status(ctx context.Context, userID int64, publicID string) (*model.PaymentIntent, error) {
	in, err := s.intents.GetByPublicID(ctx, publicID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "payment intent not found")
	}
	if err != nil {
		return nil, err
	}
	if in.UserID != userID {
		return nil, apperr.New(apperr.CodeNotOwner, "payment intent belongs to another user")
	}
	return in, nil
}

func (s *service) ExpireStale(ctx context.Context) (int64, error) {
	return s.intents.ExpireStale(ctx, s.now().UTC())
}
