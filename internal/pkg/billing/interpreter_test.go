package billing

import "testing"

func TestInterpretEvent(t *testing.T) {
	tests := []struct {
		event          string
		providerStatus string
		want           string
		recognized     bool
	}{
		{event: "PAYMENT_CONFIRMED", want: "PAID", recognized: true},
		{event: "PAYMENT_RECEIVED", want: "PAID", recognized: true},
		{event: "PAYMENT_OVERDUE", want: "FAILED", recognized: true},
		{event: "PAYMENT_DELETED", want: "REFUNDED", recognized: true},
		{event: "PAYMENT_REFUNDED", want: "REFUNDED", recognized: true},
		{event: "PAYMENT_UPDATED", providerStatus: "awaiting_risk_analysis", want: "AWAITING_RISK_ANALYSIS", recognized: true},
		{event: "PAYMENT_UPDATED", providerStatus: " ", want: "pending", recognized: true},
		{event: " PAYMENT_CONFIRMED ", want: "PAID", recognized: true},
		{event: "payment_confirmed", want: "", recognized: false},
		{event: "SUBSCRIPTION_CREATED", want: "", recognized: false},
		{event: "", want: "", recognized: false},
	}

	for _, tt := range tests {
		got, ok := InterpretEvent(tt.event, tt.providerStatus)
		if got != tt.want || ok != tt.recognized {
			t.Fatalf("InterpretEvent(%q, %q) = (%q, %v), want (%q, %v)",
				tt.event, tt.providerStatus, got, ok, tt.want, tt.recognized)
		}
	}
}
