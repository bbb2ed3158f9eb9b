package gatewayrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itzmejanak/ChargeGhar-sub001/util/apperr"
)

const khaltiBaseURL = "https://khalti.com/api/v2"

// Khalti hosted checkout: initiation returns a pidx plus a payment URL, the
// callback echoes the pidx, and settlement truth comes from the lookup API.
type khalti struct {
	secretKey string
	baseURL   string
	client    *http.Client
}

func NewKhalti(secretKey string) Adapter {
	return &khalti{
		secretKey: secretKey,
		baseURL:   khaltiBaseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (k *khalti) Name() string { return "khalti" }

func (k *khalti) Initiate(ctx context.Context, req InitiateReq) (*InitiateResp, error) {
	// Khalti amounts are in paisa. Round half-up at the second decimal so a
	// sub-paisa fraction cannot shave the initiated amount below the intent
	// and trip the settlement amount check.
	body := map[string]any{
		"amount":              req.Amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart(),
		"purchase_order_id":   req.ExternalID,
		"purchase_order_name": req.Description,
		"return_url":          req.ReturnURL,
		"website_url":         req.ReturnURL,
	}
	b, _ := json.Marshal(body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+"/epayment/initiate/", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Key "+k.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("khalti initiate failed: %s", resp.Status)
	}

	var out struct {
		Pidx       string `json:"pidx"`
		PaymentURL string `json:"payment_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Pidx == "" {
		return nil, errors.New("khalti: empty pidx")
	}

	return &InitiateResp{Reference: out.Pidx, RedirectURL: out.PaymentURL}, nil
}

type khaltiCallback struct {
	Pidx   string `json:"pidx"`
	Status string `json:"status"`
}

// Khalti callbacks carry no signature; shape is all there is to check before
// the lookup call re-verifies everything.
func (k *khalti) ValidateCallback(_ string, raw []byte) error {
	var cb khaltiCallback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return apperr.Wrap(apperr.CodeInvalidWebhook, "khalti: malformed callback", err)
	}
	if cb.Pidx == "" {
		return apperr.New(apperr.CodeInvalidWebhook, "khalti: callback missing pidx")
	}
	return nil
}

func (k *khalti) CorrelationKey(raw []byte) (string, error) {
	var cb khaltiCallback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return "", apperr.Wrap(apperr.CodeInvalidWebhook, "khalti: malformed callback", err)
	}
	return cb.Pidx, nil
}

func (k *khalti) Verify(ctx context.Context, raw []byte) (*VerifyResult, error) {
	var cb khaltiCallback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidWebhook, "khalti: malformed callback", err)
	}

	b, _ := json.Marshal(map[string]string{"pidx": cb.Pidx})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+"/epayment/lookup/", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Key "+k.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := k.client.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeGatewayVerification, "khalti: lookup unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return nil, apperr.Newf(apperr.CodeGatewayVerification, "khalti: lookup returned %s", resp.Status)
	}
	if resp.StatusCode >= 300 {
		return &VerifyResult{Success: false}, nil
	}

	var out struct {
		Pidx          string `json:"pidx"`
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
		TotalAmount   int64  `json:"total_amount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperr.Wrap(apperr.CodeGatewayVerification, "khalti: bad lookup body", err)
	}

	return &VerifyResult{
		Success:       out.Status == "Completed",
		ExternalTxnID: out.TransactionID,
		Amount:        decimal.NewFromInt(out.TotalAmount).Div(decimal.NewFromInt(100)),
	}, nil
}
