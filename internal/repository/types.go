package repository

import "time"

// SettlementRunListFilter 查询结算批次列表的过滤条件
type SettlementRunListFilter struct {
	Page        int
	PageSize    int
	RunType     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PayoutListFilter 查询打款单列表的过滤条件
type PayoutListFilter struct {
	Page        int
	PageSize    int
	SellerID    uint
	RunID       uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ReturnListFilter 查询退货请求列表的过滤条件
type ReturnListFilter struct {
	Page     int
	PageSize int
	OrderID  uint
	UserID   uint
	Status   string
	Method   string
}

// SettlementEntryListFilter 查询结算分录的过滤条件
type SettlementEntryListFilter struct {
	Page      int
	PageSize  int
	SellerID  uint
	OrderID   uint
	RunID     uint
	Direction string
}
