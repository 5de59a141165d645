package models

import (
	"time"

	"gorm.io/gorm"
)

// ReturnRequest 退货请求表
// 状态机：pending → approved → processing → completed | rejected | canceled。
// approved → processing 由退款处理推进，状态即单写者闸门。
type ReturnRequest struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                       // 主键
	OrderID         uint           `gorm:"index;not null" json:"order_id"`                             // 订单ID
	OrderItemID     *uint          `gorm:"index" json:"order_item_id,omitempty"`                       // 订单项ID（整单退货为空）
	UserID          uint           `gorm:"index;not null" json:"user_id"`                              // 买家ID
	Status          string         `gorm:"type:varchar(20);not null;index" json:"status"`              // 状态
	Reason          string         `gorm:"type:varchar(500)" json:"reason"`                            // 退货原因
	RefundMethod    string         `gorm:"type:varchar(20);not null" json:"refund_method"`             // 退款方式（original/store_credit/bank_transfer）
	RefundAmount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"refund_amount"` // 退款金额
	GatewayRefundID string         `gorm:"type:varchar(128)" json:"gateway_refund_id,omitempty"`       // 网关退款单号
	RejectReason    string         `gorm:"type:varchar(500)" json:"reject_reason,omitempty"`           // 拒绝原因
	FailureReason   string         `gorm:"type:varchar(500)" json:"failure_reason,omitempty"`          // 最近一次处理失败原因
	ApprovedAt      *time.Time     `json:"approved_at"`                                                // 审核通过时间
	ProcessedAt     *time.Time     `gorm:"index" json:"processed_at"`                                  // 退款发起时间
	CompletedAt     *time.Time     `json:"completed_at"`                                               // 完成时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                    // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间

	Order     Order      `gorm:"foreignKey:OrderID" json:"order,omitempty"`          // 关联订单
	OrderItem *OrderItem `gorm:"foreignKey:OrderItemID" json:"order_item,omitempty"` // 关联订单项
}

// TableName 指定表名
func (ReturnRequest) TableName() string {
	return "return_requests"
}
