package models

import (
	"time"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// User is the account that buys plans. Ids are issued by the auth service.
type User struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(150)" json:"name"`
	Email     string    `gorm:"uniqueIndex;type:varchar(200)" json:"email"`
	Role      string    `gorm:"type:varchar(50);default:'user'" json:"role"`
	Status    string    `gorm:"type:varchar(50);default:'inactive'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == ROLE_ADMIN
}
