package entitlements

import (
	"testing"
	"time"

	"github.com/ManuelReschke/salvaplantao/app/models"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 3)
	past := now.AddDate(0, 0, -3)

	tests := []struct {
		name    string
		isAdmin bool
		ent     *models.UserEntitlement
		want    Access
	}{
		{name: "admin without entitlement", isAdmin: true, want: AccessActive},
		{name: "no entitlement", want: AccessInactive},
		{name: "in force", ent: &models.UserEntitlement{Status: models.EntitlementStatusActive, AccessUntil: &future}, want: AccessActive},
		{name: "lapsed", ent: &models.UserEntitlement{Status: models.EntitlementStatusActive, AccessUntil: &past}, want: AccessExpired},
		{name: "deactivated", ent: &models.UserEntitlement{Status: models.EntitlementStatusInactive, AccessUntil: &future}, want: AccessExpired},
		{name: "no end date", ent: &models.UserEntitlement{Status: models.EntitlementStatusActive}, want: AccessExpired},
	}

	for _, tt := range tests {
		got := Evaluate(tt.isAdmin, tt.ent, now)
		if got.Status != tt.want {
			t.Fatalf("%s: Evaluate() = %q, want %q", tt.name, got.Status, tt.want)
		}
	}
}

func TestEvaluateAdminFlag(t *testing.T) {
	st := Evaluate(true, nil, time.Now())
	if !st.IsAdmin {
		t.Fatalf("expected admin flag to be set")
	}
	if st.PlanCode != nil || st.AccessUntil != nil {
		t.Fatalf("expected admin state without plan details")
	}
}

func TestEvaluateCarriesPlan(t *testing.T) {
	until := time.Now().Add(time.Hour)
	st := Evaluate(false, &models.UserEntitlement{PlanCode: models.PlanAnnual, Status: models.EntitlementStatusActive, AccessUntil: &until}, time.Now())
	if st.PlanCode == nil || *st.PlanCode != models.PlanAnnual {
		t.Fatalf("expected plan code %q, got %v", models.PlanAnnual, st.PlanCode)
	}
}
