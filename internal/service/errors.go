package service

import "errors"

// 服务层错误定义
var (
	ErrNotFound           = errors.New("记录不存在")
	ErrInvalidInput       = errors.New("无效的输入参数")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidPassword    = errors.New("原密码错误")

	// ErrRunNotProcessable 结算批次当前状态不允许处理
	ErrRunNotProcessable = errors.New("结算批次状态不允许处理")
	// ErrSellerInactive 卖家已停用, 不参与结算
	ErrSellerInactive = errors.New("卖家已停用")

	// ErrReturnNotProcessable 退货请求当前状态不允许该操作
	ErrReturnNotProcessable = errors.New("退货请求状态不允许该操作")
	// ErrPayoutNotProcessable 打款单当前状态不允许该操作
	ErrPayoutNotProcessable = errors.New("打款单状态不允许该操作")
	// ErrRefundLocked 退款正在被其他 worker 处理
	ErrRefundLocked = errors.New("退款处理中, 请勿重复操作")
	// ErrRefundAmountExceeded 退款金额超过订单项小计
	ErrRefundAmountExceeded = errors.New("退款金额超过可退上限")

	ErrEmailServiceDisabled      = errors.New("邮件服务未启用")
	ErrEmailServiceNotConfigured = errors.New("邮件服务未配置")
	ErrInvalidEmail              = errors.New("无效的邮箱地址")
	ErrEmailRecipientRejected    = errors.New("收件人地址被拒绝")
)
