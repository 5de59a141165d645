package repository

import (
	"errors"
	"time"

	"github.com/pazar-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单数据访问接口（结算核心对订单只读，仅回写聚合状态）
type OrderRepository interface {
	GetByID(id uint) (*models.Order, error)
	GetByIDWithItems(id uint) (*models.Order, error)
	GetByIDForUpdate(tx *gorm.DB, id uint) (*models.Order, error)
	ListItemsForPeriod(statuses []string, from, to time.Time) ([]models.OrderItem, error)
	ListItemsForOrders(statuses []string, orderIDs []uint) ([]models.OrderItem, error)
	ListItemsByOrderID(orderID uint) ([]models.OrderItem, error)
	UpdateStatus(tx *gorm.DB, orderID uint, status string, refundedAt *time.Time) error
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 订单仓储实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Transaction 执行事务
func (r *GormOrderRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByID 按ID获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDWithItems 按ID获取订单并预加载订单项
func (r *GormOrderRepository) GetByIDWithItems(id uint) (*models.Order, error) {
	if id == 0 {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 事务内按ID加锁获取订单
func (r *GormOrderRepository) GetByIDForUpdate(tx *gorm.DB, id uint) (*models.Order, error) {
	if tx == nil {
		tx = r.db
	}
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListItemsForPeriod 查询账期内可结算订单的订单项
func (r *GormOrderRepository) ListItemsForPeriod(statuses []string, from, to time.Time) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status IN ?", statuses).
		Where("orders.delivered_at >= ? AND orders.delivered_at < ?", from, to).
		Where("orders.deleted_at IS NULL").
		Order("order_items.seller_id, order_items.id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListItemsForOrders 查询指定订单集合中可结算订单的订单项
func (r *GormOrderRepository) ListItemsForOrders(statuses []string, orderIDs []uint) ([]models.OrderItem, error) {
	if len(orderIDs) == 0 {
		return []models.OrderItem{}, nil
	}
	var items []models.OrderItem
	err := r.db.
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status IN ?", statuses).
		Where("orders.id IN ?", orderIDs).
		Where("orders.deleted_at IS NULL").
		Order("order_items.seller_id, order_items.id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListItemsByOrderID 查询订单的全部订单项
func (r *GormOrderRepository) ListItemsByOrderID(orderID uint) ([]models.OrderItem, error) {
	if orderID == 0 {
		return []models.OrderItem{}, nil
	}
	var items []models.OrderItem
	if err := r.db.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatus 更新订单聚合状态
func (r *GormOrderRepository) UpdateStatus(tx *gorm.DB, orderID uint, status string, refundedAt *time.Time) error {
	if tx == nil {
		tx = r.db
	}
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if refundedAt != nil {
		updates["refunded_at"] = refundedAt
	}
	return tx.Model(&models.Order{}).Where("id = ?", orderID).Updates(updates).Error
}
