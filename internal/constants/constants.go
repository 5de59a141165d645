package constants

// 订单状态常量
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusPaid           = "paid"
	OrderStatusShipped        = "shipped"
	OrderStatusDelivered      = "delivered"
	OrderStatusCompleted      = "completed"
	OrderStatusRefunded       = "refunded"
	OrderStatusCanceled       = "canceled"
)

// SettleableOrderStatuses 可进入结算的订单状态
var SettleableOrderStatuses = []string{
	OrderStatusDelivered,
	OrderStatusCompleted,
}

// 卖家类型常量
const (
	SellerTypeIndividual = "individual"
	SellerTypeCorporate  = "corporate"
)

// 卖家状态常量
const (
	SellerStatusActive   = "active"
	SellerStatusInactive = "inactive"
)

// 结算批次类型常量
const (
	RunTypeManual         = "manual"
	RunTypeScheduled      = "scheduled"
	RunTypeOrderTriggered = "order_triggered"
)

// 结算批次状态常量
const (
	RunStatusPending            = "pending"
	RunStatusProcessing         = "processing"
	RunStatusCompleted          = "completed"
	RunStatusPartiallyCompleted = "partially_completed"
	RunStatusFailed             = "failed"
)

// 结算分录方向常量
const (
	EntryDirectionEarn     = "earn"
	EntryDirectionReversal = "reversal"
)

// 打款单状态常量
const (
	PayoutStatusScheduled  = "scheduled"
	PayoutStatusProcessing = "processing"
	PayoutStatusPaid       = "paid"
	PayoutStatusFailed     = "failed"
)

// 打款单元数据类型常量
const (
	PayoutMetaKindRefund = "refund"
	PayoutMetaKindManual = "manual"
)

// 退货请求状态常量
const (
	ReturnStatusPending    = "pending"
	ReturnStatusApproved   = "approved"
	ReturnStatusProcessing = "processing"
	ReturnStatusCompleted  = "completed"
	ReturnStatusRejected   = "rejected"
	ReturnStatusCanceled   = "canceled"
)

// 退款方式常量
const (
	RefundMethodOriginal     = "original"
	RefundMethodStoreCredit  = "store_credit"
	RefundMethodBankTransfer = "bank_transfer"
)

// 积分流水方向常量
const (
	CreditDirectionIn  = "in"
	CreditDirectionOut = "out"
)

// CreditPointsPerCurrencyUnit 退款转积分的固定汇率（1 货币单位 = 10 积分）
const CreditPointsPerCurrencyUnit = 10

// 支付提供方常量
const (
	PaymentProviderStripe    = "stripe"
	PaymentProviderWechatpay = "wechatpay"
	PaymentProviderIyzico    = "iyzico"
)

// 队列名称常量（权重即优先级：单笔订单结算 > 订单触发批次 > 常规批次）
const (
	QueueOrderSettlements = "order_settlements"
	QueueSettlementsHigh  = "settlements_high"
	QueueSettlements      = "settlements"
)

// QueuePriorities 各队列的调度权重
var QueuePriorities = map[string]int{
	QueueOrderSettlements: 15,
	QueueSettlementsHigh:  10,
	QueueSettlements:      5,
}

// 任务类型常量
const (
	TaskSettlementRun   = "settlement:run"
	TaskOrderSettlement = "settlement:order"
)

// 运维角色常量
const (
	RoleFinanceAdmin  = "finance_admin"
	RoleFinanceViewer = "finance_viewer"
)
