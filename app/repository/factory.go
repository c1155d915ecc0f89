package repository

import (
	"sync"

	"github.com/ManuelReschke/salvaplantao/internal/pkg/billing"
	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetBillingRepository returns the billing repository instance
func (f *Factory) GetBillingRepository() billing.Repository {
	return f.GetRepositories().Billing
}

var (
	globalFactory *Factory
	globalOnce    sync.Once
)

// InitGlobalFactory binds the process-wide factory to db. Later calls are ignored.
func InitGlobalFactory(db *gorm.DB) {
	globalOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the factory set by InitGlobalFactory
func GetGlobalFactory() *Factory {
	return globalFactory
}
