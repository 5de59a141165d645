package repository

import (
	"errors"
	"time"

	"github.com/pazar-next/internal/constants"
	"github.com/pazar-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReturnRepository 退货请求数据访问接口
type ReturnRepository interface {
	GetByID(id uint) (*models.ReturnRequest, error)
	GetByIDForUpdate(tx *gorm.DB, id uint) (*models.ReturnRequest, error)
	Create(request *models.ReturnRequest) error
	Update(request *models.ReturnRequest) error
	List(filter ReturnListFilter) ([]models.ReturnRequest, int64, error)
	CountPendingCompletionByOrder(orderID uint, itemIDs []uint) (int64, error)
	ListStuckProcessing(olderThan time.Time) ([]models.ReturnRequest, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormReturnRepository
}

// GormReturnRepository GORM 退货仓储实现
type GormReturnRepository struct {
	db *gorm.DB
}

// NewReturnRepository 创建退货仓储
func NewReturnRepository(db *gorm.DB) *GormReturnRepository {
	return &GormReturnRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReturnRepository) WithTx(tx *gorm.DB) *GormReturnRepository {
	if tx == nil {
		return r
	}
	return &GormReturnRepository{db: tx}
}

// Transaction 执行事务
func (r *GormReturnRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByID 按ID获取退货请求
func (r *GormReturnRepository) GetByID(id uint) (*models.ReturnRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var request models.ReturnRequest
	if err := r.db.Preload("Order").Preload("OrderItem").First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// GetByIDForUpdate 事务内按ID加锁获取退货请求
func (r *GormReturnRepository) GetByIDForUpdate(tx *gorm.DB, id uint) (*models.ReturnRequest, error) {
	if tx == nil {
		tx = r.db
	}
	var request models.ReturnRequest
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

// Create 创建退货请求
func (r *GormReturnRepository) Create(request *models.ReturnRequest) error {
	return r.db.Create(request).Error
}

// Update 更新退货请求
func (r *GormReturnRepository) Update(request *models.ReturnRequest) error {
	return r.db.Save(request).Error
}

// List 分页查询退货请求
func (r *GormReturnRepository) List(filter ReturnListFilter) ([]models.ReturnRequest, int64, error) {
	query := r.db.Model(&models.ReturnRequest{})
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Method != "" {
		query = query.Where("refund_method = ?", filter.Method)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var requests []models.ReturnRequest
	if err := query.Order("id desc").Find(&requests).Error; err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// CountPendingCompletionByOrder 统计订单中尚无已完成退货的订单项数
// 用于判断整单是否可以转为 refunded。
func (r *GormReturnRepository) CountPendingCompletionByOrder(orderID uint, itemIDs []uint) (int64, error) {
	if orderID == 0 || len(itemIDs) == 0 {
		return 0, nil
	}
	var completedItemIDs []uint
	err := r.db.Model(&models.ReturnRequest{}).
		Where("order_id = ?", orderID).
		Where("status = ?", constants.ReturnStatusCompleted).
		Where("order_item_id IS NOT NULL").
		Pluck("order_item_id", &completedItemIDs).Error
	if err != nil {
		return 0, err
	}
	completed := make(map[uint]bool, len(completedItemIDs))
	for _, id := range completedItemIDs {
		completed[id] = true
	}
	var pending int64
	for _, id := range itemIDs {
		if !completed[id] {
			pending++
		}
	}
	return pending, nil
}

// ListStuckProcessing 查询滞留在 processing 状态超过阈值的退货请求
func (r *GormReturnRepository) ListStuckProcessing(olderThan time.Time) ([]models.ReturnRequest, error) {
	var requests []models.ReturnRequest
	err := r.db.
		Preload("Order").
		Where("status = ?", constants.ReturnStatusProcessing).
		Where("processed_at < ?", olderThan).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
