package webhooksvc

import (
	"errors"
	"testing"
	"time"

	"github.com/itzmejanak/ChargeGhar-sub001/util/apperr"
)

func TestClassify(t *testing.T) {
	verErr := apperr.New(apperr.CodeGatewayVerification, "lookup timed out")
	cases := []struct {
		name     string
		err      error
		attempts int
		want     action
	}{
		{"success completes", nil, 0, actionComplete},
		{"bad signature is terminal", apperr.New(apperr.CodeInvalidWebhook, "bad sig"), 0, actionDead},
		{"unresolved retries first", apperr.New(apperr.CodeUnresolvedIntent, "no intent"), 0, actionRetry},
		{"unresolved dead-letters at budget", apperr.New(apperr.CodeUnresolvedIntent, "no intent"), maxLookupAttempts - 1, actionDead},
		{"verification retries first", verErr, 0, actionRetry},
		{"verification retries below budget", verErr, maxVerifyAttempts - 2, actionRetry},
		{"verification force-fails at budget", verErr, maxVerifyAttempts - 1, actionFailIntent},
		{"balance conflict retries first", apperr.New(apperr.CodeInsufficientBalance, "short"), 0, actionRetry},
		{"balance conflict dead-letters at budget", apperr.New(apperr.CodeInsufficientBalance, "short"), maxBalanceAttempts - 1, actionDead},
		{"settlement on expired intent is terminal", apperr.New(apperr.CodeExpiredIntent, "expired during settlement"), 0, actionDead},
		{"persistence failure always retries", errors.New("pq: connection reset"), 50, actionRetry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.err, tc.attempts); got != tc.want {
				t.Fatalf("classify(%v, %d) = %v, want %v", tc.err, tc.attempts, got, tc.want)
			}
		})
	}
}

func TestBackoffAt(t *testing.T) {
	for i, want := range []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second} {
		if got := backoffAt(i); got != want {
			t.Fatalf("backoffAt(%d) = %v, want %v", i, got, want)
		}
	}
}
