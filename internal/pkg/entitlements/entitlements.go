package entitlements

import (
	"time"

	"github.com/ManuelReschke/salvaplantao/app/models"
)

type Access string

const (
	AccessActive   Access = "active"
	AccessExpired  Access = "expired"
	AccessInactive Access = "inactive"
)

// State is the billing access summary shown to a user.
type State struct {
	Status      Access     `json:"status"`
	IsAdmin     bool       `json:"isAdmin,omitempty"`
	PlanCode    *string    `json:"planCode"`
	AccessUntil *time.Time `json:"accessUntil"`
}

// Evaluate computes access from role and the stored entitlement. Admins are
// always active; a stored entitlement that is not in force is expired.
func Evaluate(isAdmin bool, ent *models.UserEntitlement, now time.Time) State {
	if isAdmin {
		return State{Status: AccessActive, IsAdmin: true}
	}
	if ent == nil {
		return State{Status: AccessInactive}
	}
	plan := ent.PlanCode
	st := State{Status: AccessExpired, PlanCode: &plan, AccessUntil: ent.AccessUntil}
	if ent.InForce(now) {
		st.Status = AccessActive
	}
	return st
}
