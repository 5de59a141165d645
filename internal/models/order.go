package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表（结算核心只读订单，回写退款后的聚合状态）
type Order struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo       string         `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	UserID        uint           `gorm:"index;not null" json:"user_id"`                             // 买家ID
	Status        string         `gorm:"index;not null" json:"status"`                              // 订单状态
	Currency      string         `gorm:"not null" json:"currency"`                                  // 币种
	TotalAmount   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 实付金额
	PaymentMethod string         `gorm:"type:varchar(32);index" json:"payment_method"`              // 支付提供方
	PaymentRef    string         `gorm:"type:varchar(128);index" json:"payment_ref"`                // 外部网关交易号
	PaidAt        *time.Time     `gorm:"index" json:"paid_at"`                                      // 支付时间
	DeliveredAt   *time.Time     `gorm:"index" json:"delivered_at"`                                 // 送达时间
	RefundedAt    *time.Time     `gorm:"index" json:"refunded_at"`                                  // 整单退款时间
	CanceledAt    *time.Time     `gorm:"index" json:"canceled_at"`                                  // 取消时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt     time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
