package repository

import (
	"errors"

	"github.com/pazar-next/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口（结算核心只做库存回补）
type ProductRepository interface {
	GetByID(id uint) (*models.Product, error)
	Create(product *models.Product) error
	IncrementStock(tx *gorm.DB, productID uint, qty int) error
	WithTx(tx *gorm.DB) *GormProductRepository
}

// GormProductRepository GORM 商品仓储实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// WithTx 绑定事务
func (r *GormProductRepository) WithTx(tx *gorm.DB) *GormProductRepository {
	if tx == nil {
		return r
	}
	return &GormProductRepository{db: tx}
}

// GetByID 按ID获取商品
func (r *GormProductRepository) GetByID(id uint) (*models.Product, error) {
	if id == 0 {
		return nil, nil
	}
	var product models.Product
	if err := r.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}

// IncrementStock 原子回补库存
func (r *GormProductRepository) IncrementStock(tx *gorm.DB, productID uint, qty int) error {
	if tx == nil {
		tx = r.db
	}
	if productID == 0 || qty <= 0 {
		return nil
	}
	return tx.Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}
