package repository

import (
	"errors"

	"github.com/pazar-next/internal/models"

	"gorm.io/gorm"
)

// UserRepository 买家用户数据访问接口
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	Create(user *models.User) error
}

// GormUserRepository GORM 用户仓储实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// GetByID 按ID获取用户
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建用户
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}
