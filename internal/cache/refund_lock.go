package cache

import (
	"context"
	"fmt"
	"time"
)

const refundLockTTL = 2 * time.Minute

// 退款处理互斥锁
// 同一退货单同一时刻只允许一个 worker 执行渠道退款,
// 避免重复调用支付渠道。Redis 未启用时退化为放行,
// 由退货单状态机兜底。

func refundLockKey(returnRequestID uint) string {
	return fmt.Sprintf("refund:lock:%d", returnRequestID)
}

// TryLockRefund 尝试获取退款锁, 返回是否获取成功
func TryLockRefund(ctx context.Context, returnRequestID uint) (bool, error) {
	if !Enabled() {
		return true, nil
	}
	return redisClient.SetNX(ctx, buildKey(refundLockKey(returnRequestID)), time.Now().Unix(), refundLockTTL).Result()
}

// UnlockRefund 释放退款锁
func UnlockRefund(ctx context.Context, returnRequestID uint) error {
	if !Enabled() {
		return nil
	}
	return redisClient.Del(ctx, buildKey(refundLockKey(returnRequestID))).Err()
}
