package gatewayrepo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/itzmejanak/ChargeGhar-sub001/util/apperr"
)

func testKhalti(srv *httptest.Server) *khalti {
	return &khalti{secretKey: "test-key", baseURL: srv.URL, client: srv.Client()}
}

func TestKhaltiInitiate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/epayment/initiate/", r.URL.Path)
		require.Equal(t, "Key test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// 500 rupees posted as 50000 paisa
		require.EqualValues(t, 50000, body["amount"])
		require.Equal(t, "wallet_topup:7:1", body["purchase_order_id"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"pidx":        "bZQLD9wRVWo4CdESSfuSsB",
			"payment_url": "https://test-pay.khalti.com/?pidx=bZQLD9wRVWo4CdESSfuSsB",
		})
	}))
	defer srv.Close()

	resp, err := testKhalti(srv).Initiate(context.Background(), InitiateReq{
		ExternalID:  "wallet_topup:7:1",
		Amount:      decimal.NewFromInt(500),
		Currency:    "NPR",
		Description: "WALLET_TOPUP",
		ReturnURL:   "https://app.example/return",
	})
	require.NoError(t, err)
	require.Equal(t, "bZQLD9wRVWo4CdESSfuSsB", resp.Reference)
	require.Equal(t, "https://test-pay.khalti.com/?pidx=bZQLD9wRVWo4CdESSfuSsB", resp.RedirectURL)
}

func TestKhaltiInitiate_RoundsSubPaisa(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// 10.005 rupees rounds to 1001 paisa, not down to 1000
		require.EqualValues(t, 1001, body["amount"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"pidx":        "p1",
			"payment_url": "https://test-pay.khalti.com/?pidx=p1",
		})
	}))
	defer srv.Close()

	_, err := testKhalti(srv).Initiate(context.Background(), InitiateReq{
		ExternalID: "x", Amount: decimal.RequireFromString("10.005"),
	})
	require.NoError(t, err)
}

func TestKhaltiInitiate_EmptyPidx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"payment_url": "https://x"})
	}))
	defer srv.Close()

	_, err := testKhalti(srv).Initiate(context.Background(), InitiateReq{
		ExternalID: "x", Amount: decimal.NewFromInt(1),
	})
	require.Error(t, err)
}

func TestKhaltiValidateCallback(t *testing.T) {
	k := &khalti{}
	require.NoError(t, k.ValidateCallback("", []byte(`{"pidx":"abc","status":"Completed"}`)))
	require.Equal(t, apperr.CodeInvalidWebhook, apperr.CodeOf(k.ValidateCallback("", []byte(`{"status":"Completed"}`))))
	require.Equal(t, apperr.CodeInvalidWebhook, apperr.CodeOf(k.ValidateCallback("", []byte(`garbage`))))
}

func TestKhaltiCorrelationKey(t *testing.T) {
	k := &khalti{}
	key, err := k.CorrelationKey([]byte(`{"pidx":"bZQLD9wRVWo4CdESSfuSsB","status":"Completed"}`))
	require.NoError(t, err)
	require.Equal(t, "bZQLD9wRVWo4CdESSfuSsB", key)
}

func TestKhaltiVerify_Completed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/epayment/lookup/", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "abc", body["pidx"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"pidx":           "abc",
			"status":         "Completed",
			"transaction_id": "GFq9PFS7b2iYvL8Lir9oXe",
			"total_amount":   50000,
		})
	}))
	defer srv.Close()

	res, err := testKhalti(srv).Verify(context.Background(), []byte(`{"pidx":"abc"}`))
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "GFq9PFS7b2iYvL8Lir9oXe", res.ExternalTxnID)
	require.True(t, res.Amount.Equal(decimal.NewFromInt(500)), "paisa converted back to rupees")
}

func TestKhaltiVerify_NotCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"pidx": "abc", "status": "Expired"})
	}))
	defer srv.Close()

	res, err := testKhalti(srv).Verify(context.Background(), []byte(`{"pidx":"abc"}`))
	require.NoError(t, err)
	require.False(t, res.Success)
}

func TestKhaltiVerify_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testKhalti(srv).Verify(context.Background(), []byte(`{"pidx":"abc"}`))
	require.Equal(t, apperr.CodeGatewayVerification, apperr.CodeOf(err))
}

func TestKhaltiVerify_ClientErrorIsNotSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	res, err := testKhalti(srv).Verify(context.Background(), []byte(`{"pidx":"abc"}`))
	require.NoError(t, err)
	require.False(t, res.Success)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(&khalti{}, &esewa{})
	require.True(t, reg.Known("khalti"))
	require.True(t, reg.Known("esewa"))
	require.False(t, reg.Known("stripe"))

	a, err := reg.Get("khalti")
	require.NoError(t, err)
	require.Equal(t, "khalti", a.Name())

	_, err = reg.Get("stripe")
	require.Error(t, err)
}
