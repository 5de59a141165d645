package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SellerProfile 卖家档案表（审核通过时创建，只停用不删除）
type SellerProfile struct {
	ID                   uint             `gorm:"primarykey" json:"id"`                          // 主键
	UserID               uint             `gorm:"not null;uniqueIndex" json:"user_id"`           // 用户ID
	ShopName             string           `gorm:"type:varchar(128);not null" json:"shop_name"`   // 店铺名称
	SellerType           string           `gorm:"type:varchar(20);not null" json:"seller_type"`  // 卖家类型（individual/corporate）
	CustomCommissionRate *decimal.Decimal `gorm:"type:decimal(10,4)" json:"custom_rate"`         // 自定义佣金率（覆盖类型默认值）
	PayoutEmail          string           `gorm:"type:varchar(255)" json:"payout_email"`         // 打款联系邮箱
	PayoutIBAN           string           `gorm:"type:varchar(64)" json:"-"`                     // 打款银行账号
	Status               string           `gorm:"type:varchar(20);not null;index" json:"status"` // 状态（active/inactive）
	ApprovedAt           *time.Time       `json:"approved_at"`                                   // 审核通过时间
	CreatedAt            time.Time        `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt            time.Time        `gorm:"index" json:"updated_at"`                       // 更新时间
	DeletedAt            gorm.DeletedAt   `gorm:"index" json:"-"`                                // 软删除时间
}

// TableName 指定表名
func (SellerProfile) TableName() string {
	return "seller_profiles"
}
