package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（结算核心只关心库存回补）
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`                               // 主键
	SellerID  uint           `gorm:"index;not null" json:"seller_id"`                    // 卖家ID
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`            // 商品标题
	Price     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 售价
	Stock     int            `gorm:"not null;default:0" json:"stock"`                    // 库存
	Status    string         `gorm:"type:varchar(20);not null;index" json:"status"`      // 上架状态
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
