package gatewayrepo

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itzmejanak/ChargeGhar-sub001/util/apperr"
)

const esewaStatusURL = "https://epay.esewa.com.np/api/epay/transaction/status/"

// eSewa ePay v2: the client posts signed form fields, the success callback is
// a base64-encoded JSON blob whose signature we recompute, and settlement
// truth comes from the status-check API.
type esewa struct {
	productCode string
	secretKey   string
	statusURL   string
	client      *http.Client
}

func NewEsewa(productCode, secretKey string) Adapter {
	return &esewa{
		productCode: productCode,
		secretKey:   secretKey,
		statusURL:   esewaStatusURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (e *esewa) Name() string { return "esewa" }

// esewaSign computes the HMAC-SHA256 signature over the comma-joined
// signed-field string, base64 encoded, per the ePay v2 contract.
func esewaSign(secret, totalAmount, transactionUUID, productCode string) string {
	msg := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		totalAmount, transactionUUID, productCode)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (e *esewa) Initiate(_ context.Context, req InitiateReq) (*InitiateResp, error) {
	total := req.Amount.StringFixed(2)
	fields := map[string]string{
		"amount":                  total,
		"tax_amount":              "0",
		"total_amount":            total,
		"transaction_uuid":        req.ExternalID,
		"product_code":            e.productCode,
		"product_service_charge":  "0",
		"product_delivery_charge": "0",
		"success_url":             req.ReturnURL,
		"failure_url":             req.ReturnURL,
		"signed_field_names":      "total_amount,transaction_uuid,product_code",
		"signature":               esewaSign(e.secretKey, total, req.ExternalID, e.productCode),
	}
	return &InitiateResp{Reference: req.ExternalID, FormFields: fields}, nil
}

type esewaCallback struct {
	TransactionCode string `json:"transaction_code"`
	Status          string `json:"status"`
	TotalAmount     string `json:"total_amount"`
	TransactionUUID string `json:"transaction_uuid"`
	ProductCode     string `json:"product_code"`
	Signature       string `json:"signature"`
}

func decodeEsewaCallback(raw []byte) (*esewaCallback, error) {
	// Callbacks arrive base64 encoded; tolerate already-decoded JSON too.
	body := raw
	if decoded, err := base64.StdEncoding.DecodeString(string(raw)); err == nil {
		body = decoded
	}
	var cb esewaCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidWebhook, "esewa: malformed callback", err)
	}
	if cb.TransactionUUID == "" {
		return nil, apperr.New(apperr.CodeInvalidWebhook, "esewa: callback missing transaction_uuid")
	}
	return &cb, nil
}

func (e *esewa) ValidateCallback(_ string, raw []byte) error {
	cb, err := decodeEsewaCallback(raw)
	if err != nil {
		return err
	}
	want := esewaSign(e.secretKey, cb.TotalAmount, cb.TransactionUUID, cb.ProductCode)
	if !hmac.Equal([]byte(want), []byte(cb.Signature)) {
		return apperr.New(apperr.CodeInvalidWebhook, "esewa: signature mismatch")
	}
	return nil
}

func (e *esewa) CorrelationKey(raw []byte) (string, error) {
	cb, err := decodeEsewaCallback(raw)
	if err != nil {
		return "", err
	}
	return cb.TransactionUUID, nil
}

func (e *esewa) Verify(ctx context.Context, raw []byte) (*VerifyResult, error) {
	cb, err := decodeEsewaCallback(raw)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("product_code", e.productCode)
	q.Set("total_amount", cb.TotalAmount)
	q.Set("transaction_uuid", cb.TransactionUUID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.statusURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeGatewayVerification, "esewa: status check unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, apperr.Newf(apperr.CodeGatewayVerification, "esewa: status check returned %s", resp.Status)
	}

	var out struct {
		Status      string          `json:"status"`
		RefID       string          `json:"ref_id"`
		TotalAmount decimal.Decimal `json:"total_amount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperr.Wrap(apperr.CodeGatewayVerification, "esewa: bad status body", err)
	}

	return &VerifyResult{
		Success:       out.Status == "COMPLETE",
		ExternalTxnID: out.RefID,
		Amount:        out.TotalAmount,
	}, nil
}
