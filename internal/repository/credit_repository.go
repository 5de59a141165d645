package repository

import (
	"errors"
	"strings"

	"github.com/pazar-next/internal/models"

	"gorm.io/gorm"
)

// CreditRepository 积分流水数据访问接口
type CreditRepository interface {
	CreateTransaction(txn *models.CreditTransaction) error
	GetTransactionByReference(reference string) (*models.CreditTransaction, error)
	AddPoints(tx *gorm.DB, userID uint, points int64) error
	WithTx(tx *gorm.DB) *GormCreditRepository
}

// GormCreditRepository GORM 积分仓储实现
type GormCreditRepository struct {
	db *gorm.DB
}

// NewCreditRepository 创建积分仓储
func NewCreditRepository(db *gorm.DB) *GormCreditRepository {
	return &GormCreditRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCreditRepository) WithTx(tx *gorm.DB) *GormCreditRepository {
	if tx == nil {
		return r
	}
	return &GormCreditRepository{db: tx}
}

// CreateTransaction 创建积分流水
func (r *GormCreditRepository) CreateTransaction(txn *models.CreditTransaction) error {
	return r.db.Create(txn).Error
}

// GetTransactionByReference 按参考号获取积分流水
func (r *GormCreditRepository) GetTransactionByReference(reference string) (*models.CreditTransaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, nil
	}
	var txn models.CreditTransaction
	if err := r.db.Where("reference = ?", reference).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// AddPoints 原子增加用户积分余额
func (r *GormCreditRepository) AddPoints(tx *gorm.DB, userID uint, points int64) error {
	if tx == nil {
		tx = r.db
	}
	if userID == 0 || points == 0 {
		return nil
	}
	return tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("credit_points", gorm.Expr("credit_points + ?", points)).Error
}
