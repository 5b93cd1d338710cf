package repository

import (
	"context"

	"bridge-backend/internal/models"

	"gorm.io/gorm"
)

// AuditRepository defines the interface for append-only audit entries.
// There are deliberately no update or delete methods.
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	FindByTransaction(ctx context.Context, transactionID string) ([]*models.AuditEntry, error)
	List(ctx context.Context, page, pageSize int) ([]*models.AuditEntry, int64, error)
}

// auditRepository implements AuditRepository
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new AuditRepository instance
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Append appends a new audit entry
func (r *auditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByTransaction retrieves all entries for a transaction, oldest first
func (r *auditRepository) FindByTransaction(ctx context.Context, transactionID string) ([]*models.AuditEntry, error) {
	var entries []*models.AuditEntry
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("timestamp ASC").
		Find(&entries).Error
	return entries, err
}

// List retrieves paginated audit entries, newest first
func (r *auditRepository) List(ctx context.Context, page, pageSize int) ([]*models.AuditEntry, int64, error) {
	var entries []*models.AuditEntry
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.AuditEntry{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Offset(offset).
		Limit(pageSize).
		Order("timestamp DESC").
		Find(&entries).Error

	return entries, total, err
}
