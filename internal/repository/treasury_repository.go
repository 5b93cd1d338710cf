package repository

import (
	"context"
	"time"

	"bridge-backend/internal/models"

	"gorm.io/gorm"
)

// TreasuryRepository defines the interface for Treasury data access
type TreasuryRepository interface {
	Create(ctx context.Context, treasury *models.Treasury) error
	GetByID(ctx context.Context, id string) (*models.Treasury, error)
	FindByOwner(ctx context.Context, ownerAvatarID string) ([]*models.Treasury, error)
	FindIntervalTriggered(ctx context.Context) ([]*models.Treasury, error)

	// RecordAllocation persists the outcome of an allocation run. It is
	// written even after partial failure so the caller can see exactly which
	// categories still need manual retry.
	RecordAllocation(ctx context.Context, id string, resultJSON string, ranAt time.Time) error
}

// treasuryRepository implements TreasuryRepository
type treasuryRepository struct {
	db *gorm.DB
}

// NewTreasuryRepository creates a new TreasuryRepository instance
func NewTreasuryRepository(db *gorm.DB) TreasuryRepository {
	return &treasuryRepository{db: db}
}

// Create creates a new treasury with its wallets
func (r *treasuryRepository) Create(ctx context.Context, treasury *models.Treasury) error {
	return r.db.WithContext(ctx).Create(treasury).Error
}

// GetByID retrieves a treasury with its wallets
func (r *treasuryRepository) GetByID(ctx context.Context, id string) (*models.Treasury, error) {
	var treasury models.Treasury
	err := r.db.WithContext(ctx).
		Preload("Wallets").
		Where("id = ?", id).
		First(&treasury).Error
	if err != nil {
		return nil, err
	}
	return &treasury, nil
}

// FindByOwner finds treasuries by owner
func (r *treasuryRepository) FindByOwner(ctx context.Context, ownerAvatarID string) ([]*models.Treasury, error) {
	var treasuries []*models.Treasury
	err := r.db.WithContext(ctx).
		Preload("Wallets").
		Where("owner_avatar_id = ?", ownerAvatarID).
		Order("created_at DESC").
		Find(&treasuries).Error
	return treasuries, err
}

// FindIntervalTriggered finds treasuries whose workflow runs on an interval
func (r *treasuryRepository) FindIntervalTriggered(ctx context.Context) ([]*models.Treasury, error) {
	var treasuries []*models.Treasury
	err := r.db.WithContext(ctx).
		Preload("Wallets").
		Where("workflow_trigger = ?", models.WorkflowTriggerInterval).
		Find(&treasuries).Error
	return treasuries, err
}

// RecordAllocation persists the allocation result and run time
func (r *treasuryRepository) RecordAllocation(ctx context.Context, id string, resultJSON string, ranAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Treasury{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_allocation_result": resultJSON,
			"last_allocation_date":   ranAt,
			"updated_at":             time.Now(),
		}).Error
}
