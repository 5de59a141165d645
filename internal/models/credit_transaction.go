package models

import (
	"time"

	"gorm.io/gorm"
)

// CreditTransaction 积分流水表（参考号唯一，保证退款转积分幂等）
type CreditTransaction struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                    // 主键
	UserID          uint           `gorm:"index;not null" json:"user_id"`                           // 用户ID
	Points          int64          `gorm:"not null" json:"points"`                                  // 积分数量
	Direction       string         `gorm:"type:varchar(8);not null" json:"direction"`               // 方向（in/out）
	Reference       string         `gorm:"type:varchar(128);not null;uniqueIndex" json:"reference"` // 业务参考号
	ReturnRequestID *uint          `gorm:"index" json:"return_request_id,omitempty"`                // 关联退货请求
	Remark          string         `gorm:"type:varchar(255)" json:"remark"`                         // 备注
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间
}

// TableName 指定表名
func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
