package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementEntry 结算分录表（仅追加账本：earn 入账，reversal 反冲，历史不改写）
type SettlementEntry struct {
	ID               uint            `gorm:"primarykey" json:"id"`                                                                              // 主键
	RunID            *uint           `gorm:"index" json:"run_id,omitempty"`                                                                     // 结算批次ID（退款反冲可为空）
	SellerID         uint            `gorm:"not null;index" json:"seller_id"`                                                                   // 卖家ID
	OrderID          uint            `gorm:"not null;index" json:"order_id"`                                                                    // 订单ID
	OrderItemID      uint            `gorm:"not null;index;index:idx_settlement_entry_item_direction,unique" json:"order_item_id"`              // 订单项ID
	Direction        string          `gorm:"type:varchar(16);not null;index;index:idx_settlement_entry_item_direction,unique" json:"direction"` // 分录方向（earn/reversal）
	GrossAmount      Money           `gorm:"type:decimal(20,2);not null;default:0" json:"gross_amount"`                                         // 毛额（订单项小计）
	CommissionRate   decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"commission_rate"`                                      // 佣金率
	CommissionAmount Money           `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"`                                    // 佣金
	NetAmount        Money           `gorm:"type:decimal(20,2);not null;default:0" json:"net_amount"`                                           // 净额（反冲为负）
	PayoutID         *uint           `gorm:"index" json:"payout_id,omitempty"`                                                                  // 关联打款单
	ReversedEntryID  *uint           `gorm:"index" json:"reversed_entry_id,omitempty"`                                                          // 被反冲的原分录
	Reason           string          `gorm:"type:varchar(255)" json:"reason"`                                                                   // 分录说明（反冲原因等）
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`                                                                           // 创建时间
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`                                                                                    // 软删除时间
}

// TableName 指定表名
func (SettlementEntry) TableName() string {
	return "settlement_entries"
}
