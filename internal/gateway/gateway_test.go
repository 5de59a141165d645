package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

type fakeProvider struct {
	name    string
	refunds int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Refund(ctx context.Context, input *RefundInput) (*RefundResult, error) {
	f.refunds++
	return &RefundResult{RefundID: "re_1", Status: RefundStatusSucceeded}, nil
}

func (f *fakeProvider) RefundStatus(ctx context.Context, refundID string) (*RefundResult, error) {
	return &RefundResult{RefundID: refundID, Status: RefundStatusPending}, nil
}

func TestDispatcherRefund(t *testing.T) {
	fake := &fakeProvider{name: "stripe"}
	d := NewDispatcher(fake)

	result, err := d.Refund(context.Background(), "stripe", &RefundInput{
		PaymentRef: "pi_123",
		RefundNo:   "RF20260830001",
		Amount:     decimal.RequireFromString("25.00"),
		Currency:   "TRY",
	})
	if err != nil {
		t.Fatalf("退款失败: %v", err)
	}
	if result.RefundID != "re_1" || fake.refunds != 1 {
		t.Fatalf("未路由到目标渠道: %+v", result)
	}
}

func TestDispatcherUnsupportedProvider(t *testing.T) {
	d := NewDispatcher(&fakeProvider{name: "stripe"})

	_, err := d.Refund(context.Background(), "papara", &RefundInput{PaymentRef: "pi_123"})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("期望 ErrUnsupportedProvider, 实际: %v", err)
	}

	_, err = d.RefundStatus(context.Background(), "papara", "re_1")
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("期望 ErrUnsupportedProvider, 实际: %v", err)
	}
}

func TestDispatcherMissingPaymentRef(t *testing.T) {
	d := NewDispatcher(&fakeProvider{name: "stripe"})

	_, err := d.Refund(context.Background(), "stripe", &RefundInput{})
	if !errors.Is(err, ErrMissingPaymentRef) {
		t.Fatalf("期望 ErrMissingPaymentRef, 实际: %v", err)
	}
}
