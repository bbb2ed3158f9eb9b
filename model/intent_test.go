package model

import "testing"

func TestCanTransition_LegalPaths(t *testing.T) {
	legal := []struct{ from, to IntentStatus }{
		{IntentPending, IntentProcessing},
		{IntentPending, IntentCompleted},
		{IntentPending, IntentFailed},
		{IntentPending, IntentExpired},
		{IntentProcessing, IntentCompleted},
		{IntentProcessing, IntentFailed},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be legal", tc.from, tc.to)
		}
	}
}

func TestCanTransition_TerminalIsClosed(t *testing.T) {
	all := []IntentStatus{IntentPending, IntentProcessing, IntentCompleted, IntentFailed, IntentExpired}
	for _, from := range []IntentStatus{IntentCompleted, IntentFailed, IntentExpired} {
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal %s -> %s must be illegal", from, to)
			}
		}
	}
}

func TestTransitionSources(t *testing.T) {
	cases := []struct {
		to   IntentStatus
		want []IntentStatus
	}{
		{IntentProcessing, []IntentStatus{IntentPending}},
		{IntentCompleted, []IntentStatus{IntentPending, IntentProcessing}},
		{IntentFailed, []IntentStatus{IntentPending, IntentProcessing}},
		{IntentExpired, []IntentStatus{IntentPending}},
		{IntentPending, nil},
	}
	for _, tc := range cases {
		got := TransitionSources(tc.to)
		if len(got) != len(tc.want) {
			t.Fatalf("TransitionSources(%s) = %v, want %v", tc.to, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("TransitionSources(%s) = %v, want %v", tc.to, got, tc.want)
			}
		}
	}
}

func TestCanTransition_NoSkips(t *testing.T) {
	if CanTransition(IntentProcessing, IntentExpired) {
		t.Error("PROCESSING -> EXPIRED must be illegal: expiry only applies to PENDING")
	}
	if CanTransition(IntentProcessing, IntentPending) {
		t.Error("PROCESSING -> PENDING must be illegal")
	}
}

func TestValidPurpose(t *testing.T) {
	for _, p := range []string{"WALLET_TOPUP", "RENTAL_CHARGE", "EXTENSION"} {
		if _, ok := ValidPurpose(p); !ok {
			t.Errorf("purpose %s should be valid", p)
		}
	}
	if _, ok := ValidPurpose("REFUND"); ok {
		t.Error("unknown purpose accepted")
	}
}
