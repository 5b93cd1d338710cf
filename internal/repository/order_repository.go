// Package repository provides data access interfaces and implementations.
// The database is the single source of truth for entity state; status
// transitions go through conditional updates so a lost optimistic race is
// reported, never silently absorbed.
package repository

import (
	"context"
	"errors"
	"time"

	"bridge-backend/internal/models"

	"gorm.io/gorm"
)

// ErrNoRowsUpdated is returned when a conditional status update matched no
// row: the entity's persisted status no longer equals the expected pre-state
var ErrNoRowsUpdated = errors.New("no rows updated")

// OrderRepository defines the interface for BridgeOrder data access
type OrderRepository interface {
	Create(ctx context.Context, order *models.BridgeOrder) error
	GetByID(ctx context.Context, id string) (*models.BridgeOrder, error)
	FindByUser(ctx context.Context, userID string, status string, page, pageSize int) ([]*models.BridgeOrder, int64, error)
	FindByStatus(ctx context.Context, status models.OrderStatus) ([]*models.BridgeOrder, error)
	FindExpired(ctx context.Context, statuses []models.OrderStatus, before time.Time) ([]*models.BridgeOrder, error)

	// AdvanceStatus commits a transition only if the persisted status still
	// equals from. updates carries the evidence fields written with the
	// transition. Returns ErrNoRowsUpdated on a lost race.
	AdvanceStatus(ctx context.Context, id string, from, to models.OrderStatus, updates map[string]interface{}) error
}

// orderRepository implements OrderRepository
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new OrderRepository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create creates a new order
func (r *orderRepository) Create(ctx context.Context, order *models.BridgeOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID retrieves an order by ID
func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.BridgeOrder, error) {
	var order models.BridgeOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByUser retrieves paginated orders for a user, optionally filtered by status
func (r *orderRepository) FindByUser(ctx context.Context, userID string, status string, page, pageSize int) ([]*models.BridgeOrder, int64, error) {
	var orders []*models.BridgeOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&models.BridgeOrder{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&orders).Error

	return orders, total, err
}

// FindByStatus finds orders by status
func (r *orderRepository) FindByStatus(ctx context.Context, status models.OrderStatus) ([]*models.BridgeOrder, error) {
	var orders []*models.BridgeOrder
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Find(&orders).Error
	return orders, err
}

// FindExpired finds orders in any of the given statuses whose ExpiresAt has passed
func (r *orderRepository) FindExpired(ctx context.Context, statuses []models.OrderStatus, before time.Time) ([]*models.BridgeOrder, error) {
	var orders []*models.BridgeOrder
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", statuses, before).
		Find(&orders).Error
	return orders, err
}

// AdvanceStatus performs the optimistic check-then-write transition
func (r *orderRepository) AdvanceStatus(ctx context.Context, id string, from, to models.OrderStatus, updates map[string]interface{}) error {
	if updates == nil {
		updates = make(map[string]interface{})
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.BridgeOrder{}).
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
