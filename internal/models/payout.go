package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/pazar-next/internal/constants"

	"gorm.io/gorm"
)

// RefundMeta 退款关联元数据
type RefundMeta struct {
	ReturnRequestID uint   `json:"return_request_id"`           // 退货请求ID
	RefundMethod    string `json:"refund_method"`               // 退款方式
	GatewayRefundID string `json:"gateway_refund_id,omitempty"` // 网关退款单号
}

// ManualPayoutMeta 人工打款元数据
type ManualPayoutMeta struct {
	RequiresManualProcessing bool   `json:"requires_manual_processing"`  // 需人工处理
	ReturnRequestID          uint   `json:"return_request_id,omitempty"` // 关联退货请求
	Note                     string `json:"note,omitempty"`              // 处理备注
}

// PayoutMeta 打款单元数据（按 kind 区分的带标签联合，取代自由 JSON）
type PayoutMeta struct {
	Kind   string            `json:"kind"`
	Refund *RefundMeta       `json:"refund,omitempty"`
	Manual *ManualPayoutMeta `json:"manual,omitempty"`
}

// NewRefundPayoutMeta 创建退款元数据
func NewRefundPayoutMeta(meta RefundMeta) *PayoutMeta {
	return &PayoutMeta{Kind: constants.PayoutMetaKindRefund, Refund: &meta}
}

// NewManualPayoutMeta 创建人工打款元数据
func NewManualPayoutMeta(meta ManualPayoutMeta) *PayoutMeta {
	return &PayoutMeta{Kind: constants.PayoutMetaKindManual, Manual: &meta}
}

// Value 实现 driver.Valuer 接口
func (m *PayoutMeta) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan 实现 sql.Scanner 接口
func (m *PayoutMeta) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("payout meta: unsupported scan type")
		}
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// Payout 打款单表（仅追加：调整以负数新记录表达，不改写历史）
// 收款方二选一：卖家结算款填 SellerID，客户退款转账填 UserID。
type Payout struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                // 主键
	PayoutNo     string         `gorm:"uniqueIndex;not null" json:"payout_no"`               // 打款单编号
	SellerID     *uint          `gorm:"index" json:"seller_id,omitempty"`                    // 卖家ID（客户转账单为空）
	UserID       *uint          `gorm:"index" json:"user_id,omitempty"`                      // 收款用户ID（银行转账退款）
	RunID        *uint          `gorm:"index" json:"run_id,omitempty"`                       // 结算批次ID（退款调整可为空）
	Amount       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 金额（调整单为负）
	Currency     string         `gorm:"type:varchar(8);not null" json:"currency"`            // 币种
	Status       string         `gorm:"type:varchar(20);not null;index" json:"status"`       // 状态（scheduled/processing/paid/failed）
	Meta         *PayoutMeta    `gorm:"type:json" json:"meta,omitempty"`                     // 类型化元数据
	PaidAt       *time.Time     `gorm:"index" json:"paid_at"`                                // 打款完成时间
	FailedReason string         `gorm:"type:varchar(500)" json:"failed_reason"`              // 失败原因
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                             // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                      // 软删除时间

	Seller SellerProfile `gorm:"foreignKey:SellerID" json:"seller,omitempty"` // 卖家档案
}

// TableName 指定表名
func (Payout) TableName() string {
	return "payouts"
}
