package models

import (
	"time"

	"gorm.io/gorm"
)

// SettlementRun 结算批次表（一次账期或指定订单集合的结算）
type SettlementRun struct {
	ID             uint           `gorm:"primarykey" json:"id"`                            // 主键
	RunNo          string         `gorm:"uniqueIndex;not null" json:"run_no"`              // 批次编号
	RunType        string         `gorm:"type:varchar(20);not null;index" json:"run_type"` // 批次类型（manual/scheduled/order_triggered）
	Status         string         `gorm:"type:varchar(24);not null;index" json:"status"`   // 批次状态
	PeriodStart    *time.Time     `gorm:"index" json:"period_start,omitempty"`             // 账期开始（含）
	PeriodEnd      *time.Time     `gorm:"index" json:"period_end,omitempty"`               // 账期结束（不含）
	OrderIDs       UintArray      `gorm:"type:json" json:"order_ids,omitempty"`            // 显式订单集合（订单触发批次）
	SellerCount    int            `gorm:"not null;default:0" json:"seller_count"`          // 参与卖家组数
	SettledItems   int            `gorm:"not null;default:0" json:"settled_items"`         // 实际入账订单项数
	SkippedItems   int            `gorm:"not null;default:0" json:"skipped_items"`         // 因已结算跳过的订单项数
	FailureSummary JSON           `gorm:"type:json" json:"failure_summary,omitempty"`      // 每卖家失败原因（seller_id -> reason）
	FailedReason   string         `gorm:"type:varchar(500)" json:"failed_reason"`          // 整批失败原因
	StartedAt      *time.Time     `json:"started_at"`                                      // 开始处理时间
	FinishedAt     *time.Time     `json:"finished_at"`                                     // 结束时间
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                         // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                         // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                  // 软删除时间

	Payouts []Payout `gorm:"foreignKey:RunID" json:"payouts,omitempty"` // 产出的打款单
}

// TableName 指定表名
func (SettlementRun) TableName() string {
	return "settlement_runs"
}
