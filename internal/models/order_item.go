package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderItem 订单项表（归属唯一订单与唯一卖家，subtotal = qty * unit_price）
type OrderItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                    // 主键
	OrderID   uint           `gorm:"index;not null" json:"order_id"`                          // 订单ID
	SellerID  uint           `gorm:"index;not null" json:"seller_id"`                         // 卖家ID
	ProductID uint           `gorm:"index;not null" json:"product_id"`                        // 商品ID
	Title     string         `gorm:"type:varchar(255);not null" json:"title"`                 // 商品标题快照
	Quantity  int            `gorm:"not null" json:"quantity"`                                // 数量
	UnitPrice Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"` // 单价
	Subtotal  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`   // 小计
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                                 // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
