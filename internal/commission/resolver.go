package commission

import (
	"errors"

	"github.com/pazar-next/internal/constants"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidRate 佣金率不在 [0,1] 区间
	ErrInvalidRate = errors.New("commission rate out of range [0,1]")
	// ErrInvalidAmount 结算金额必须为正数
	ErrInvalidAmount = errors.New("commission amount must be positive")
	// ErrUnknownSellerType 未知卖家类型
	ErrUnknownSellerType = errors.New("unknown seller type")
)

// Result 佣金拆分结果，Commission + Net 恒等于输入金额
type Result struct {
	Rate       decimal.Decimal // 实际采用的佣金率
	Commission decimal.Decimal // 平台佣金
	Net        decimal.Decimal // 卖家净额
}

// Resolver 佣金率解析器（纯函数，无副作用）
type Resolver struct {
	individualRate decimal.Decimal
	corporateRate  decimal.Decimal
}

// NewResolver 创建佣金解析器
func NewResolver(individualRate, corporateRate decimal.Decimal) *Resolver {
	return &Resolver{
		individualRate: individualRate,
		corporateRate:  corporateRate,
	}
}

// Resolve 计算一笔金额的佣金与净额
// customRate 存在时覆盖类型默认佣金率；金额按货币最小单位银行家舍入，避免系统性偏差。
func (r *Resolver) Resolve(sellerType string, amount decimal.Decimal, customRate *decimal.Decimal) (Result, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Result{}, ErrInvalidAmount
	}
	rate, err := r.rateFor(sellerType, customRate)
	if err != nil {
		return Result{}, err
	}
	commission := amount.Mul(rate).RoundBank(2)
	net := amount.Sub(commission)
	return Result{
		Rate:       rate,
		Commission: commission,
		Net:        net,
	}, nil
}

func (r *Resolver) rateFor(sellerType string, customRate *decimal.Decimal) (decimal.Decimal, error) {
	if customRate != nil {
		if !validRate(*customRate) {
			return decimal.Zero, ErrInvalidRate
		}
		return *customRate, nil
	}
	var rate decimal.Decimal
	switch sellerType {
	case constants.SellerTypeIndividual:
		rate = r.individualRate
	case constants.SellerTypeCorporate:
		rate = r.corporateRate
	default:
		return decimal.Zero, ErrUnknownSellerType
	}
	if !validRate(rate) {
		return decimal.Zero, ErrInvalidRate
	}
	return rate, nil
}

func validRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(decimal.NewFromInt(1))
}
