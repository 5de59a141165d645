package repository

import (
	"errors"
	"time"

	"github.com/pazar-next/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 运维账号数据访问接口
type AdminRepository interface {
	GetByID(id uint) (*models.Admin, error)
	GetByUsername(username string) (*models.Admin, error)
	Update(admin *models.Admin) error
	UpdateLastLogin(id uint, at time.Time) error
}

// GormAdminRepository GORM 运维账号仓储实现
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建运维账号仓储
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// GetByID 按ID获取运维账号
func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	if id == 0 {
		return nil, nil
	}
	var admin models.Admin
	if err := r.db.First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// GetByUsername 按账号获取运维账号
func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	if username == "" {
		return nil, nil
	}
	var admin models.Admin
	if err := r.db.Where("username = ?", username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// Update 更新运维账号
func (r *GormAdminRepository) Update(admin *models.Admin) error {
	return r.db.Save(admin).Error
}

// UpdateLastLogin 更新最后登录时间
func (r *GormAdminRepository) UpdateLastLogin(id uint, at time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Admin{}).Where("id = ?", id).Update("last_login_at", at).Error
}
