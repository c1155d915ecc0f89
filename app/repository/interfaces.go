package repository

import (
	"github.com/ManuelReschke/salvaplantao/app/models"
	"github.com/ManuelReschke/salvaplantao/internal/pkg/billing"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetByID(id string) (*models.User, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User    UserRepository
	Billing billing.Repository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Billing: billing.NewRepository(db),
	}
}
