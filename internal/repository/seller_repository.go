package repository

import (
	"errors"

	"github.com/pazar-next/internal/models"

	"gorm.io/gorm"
)

// SellerRepository 卖家档案数据访问接口
type SellerRepository interface {
	GetByID(id uint) (*models.SellerProfile, error)
	GetByIDs(ids []uint) (map[uint]models.SellerProfile, error)
	Create(profile *models.SellerProfile) error
	Update(profile *models.SellerProfile) error
	WithTx(tx *gorm.DB) *GormSellerRepository
}

// GormSellerRepository GORM 卖家仓储实现
type GormSellerRepository struct {
	db *gorm.DB
}

// NewSellerRepository 创建卖家仓储
func NewSellerRepository(db *gorm.DB) *GormSellerRepository {
	return &GormSellerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSellerRepository) WithTx(tx *gorm.DB) *GormSellerRepository {
	if tx == nil {
		return r
	}
	return &GormSellerRepository{db: tx}
}

// GetByID 按ID获取卖家档案
func (r *GormSellerRepository) GetByID(id uint) (*models.SellerProfile, error) {
	if id == 0 {
		return nil, nil
	}
	var profile models.SellerProfile
	if err := r.db.First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetByIDs 批量获取卖家档案
func (r *GormSellerRepository) GetByIDs(ids []uint) (map[uint]models.SellerProfile, error) {
	result := make(map[uint]models.SellerProfile, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var profiles []models.SellerProfile
	if err := r.db.Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		result[p.ID] = p
	}
	return result, nil
}

// Create 创建卖家档案
func (r *GormSellerRepository) Create(profile *models.SellerProfile) error {
	return r.db.Create(profile).Error
}

// Update 更新卖家档案
func (r *GormSellerRepository) Update(profile *models.SellerProfile) error {
	return r.db.Save(profile).Error
}
