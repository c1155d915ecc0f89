package models

import "time"

const (
	EntitlementStatusActive   = "active"
	EntitlementStatusInactive = "inactive"
)

// UserEntitlement is the single access grant a user holds. One row per user.
type UserEntitlement struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             string     `gorm:"type:varchar(64);not null;uniqueIndex:ux_user_entitlements_user" json:"user_id"`
	PlanCode           string     `gorm:"type:varchar(32);not null" json:"plan_code"`
	Status             string     `gorm:"type:varchar(16);not null;default:'inactive'" json:"status"`
	AccessUntil        *time.Time `gorm:"type:timestamp;default:null" json:"access_until,omitempty"`
	ActivatedByOrderID *uint      `gorm:"default:null" json:"activated_by_order_id,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserEntitlement) TableName() string {
	return "user_entitlements"
}

// InForce reports whether the entitlement grants access at now.
func (e *UserEntitlement) InForce(now time.Time) bool {
	if e == nil || e.Status != EntitlementStatusActive || e.AccessUntil == nil {
		return false
	}
	return e.AccessUntil.After(now)
}
