package repository

import (
	"context"
	"fmt"
	"time"

	"bridge-backend/internal/models"

	"gorm.io/gorm"
)

// EscrowRepository defines the interface for Escrow data access
type EscrowRepository interface {
	Create(ctx context.Context, escrow *models.Escrow) error
	GetByID(ctx context.Context, id string) (*models.Escrow, error)

	// ListForAvatar returns escrows where the avatar is payer, payee, or an
	// approver, optionally filtered by status
	ListForAvatar(ctx context.Context, avatarID string, status string) ([]*models.Escrow, error)

	// AdvanceStatus commits a transition only if the persisted status still
	// equals from; returns ErrNoRowsUpdated on a lost race
	AdvanceStatus(ctx context.Context, id string, from, to models.EscrowStatus, updates map[string]interface{}) error
}

// escrowRepository implements EscrowRepository
type escrowRepository struct {
	db *gorm.DB
}

// NewEscrowRepository creates a new EscrowRepository instance
func NewEscrowRepository(db *gorm.DB) EscrowRepository {
	return &escrowRepository{db: db}
}

// Create creates a new escrow
func (r *escrowRepository) Create(ctx context.Context, escrow *models.Escrow) error {
	return r.db.WithContext(ctx).Create(escrow).Error
}

// GetByID retrieves an escrow by ID
func (r *escrowRepository) GetByID(ctx context.Context, id string) (*models.Escrow, error) {
	var escrow models.Escrow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&escrow).Error
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

// ListForAvatar lists escrows the avatar participates in.
// Approver membership is matched against the stored JSON array; the quoted
// form avoids matching substrings of other ids.
func (r *escrowRepository) ListForAvatar(ctx context.Context, avatarID string, status string) ([]*models.Escrow, error) {
	var escrows []*models.Escrow

	approverPattern := fmt.Sprintf("%%\"%s\"%%", avatarID)
	query := r.db.WithContext(ctx).
		Where("payer_avatar_id = ? OR payee_avatar_id = ? OR approvers LIKE ?", avatarID, avatarID, approverPattern)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	err := query.Order("created_at DESC").Find(&escrows).Error
	return escrows, err
}

// AdvanceStatus performs the optimistic check-then-write transition
func (r *escrowRepository) AdvanceStatus(ctx context.Context, id string, from, to models.EscrowStatus, updates map[string]interface{}) error {
	if updates == nil {
		updates = make(map[string]interface{})
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.Escrow{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoRowsUpdated
	}
	return nil
}
