package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pazar-next/internal/config"
	"github.com/pazar-next/internal/gateway"
)

func TestToMinorAmount(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     string
	}{
		{"25.00", "TRY", "2500"},
		{"0.50", "USD", "50"},
		{"19.99", "EUR", "1999"},
		{"1200", "JPY", "1200"},
	}
	for _, c := range cases {
		got := toMinorAmount(decimal.RequireFromString(c.amount), c.currency)
		if got != c.want {
			t.Errorf("%s %s: 期望 %s, 实际 %s", c.amount, c.currency, c.want, got)
		}
	}
}

func TestRefundSendsIdempotencyKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"re_1","status":"succeeded"}`)
	}))
	defer srv.Close()

	p := New(config.StripeConfig{SecretKey: "sk_test", APIBaseURL: srv.URL})
	result, err := p.Refund(context.Background(), &gateway.RefundInput{
		PaymentRef: "pi_1",
		RefundNo:   "RT42",
		Amount:     decimal.RequireFromString("10.00"),
		Currency:   "TRY",
	})
	if err != nil {
		t.Fatalf("退款失败: %v", err)
	}
	if result.RefundID != "re_1" {
		t.Fatalf("退款单号异常: %+v", result)
	}
	// 同一退货请求重试时, 渠道侧以该键去重
	if gotKey != "RT42" {
		t.Fatalf("退款请求应携带幂等键: %q", gotKey)
	}
}

func TestParseRefund(t *testing.T) {
	result, err := parseRefund(map[string]interface{}{"id": "re_9", "status": "succeeded"}, 200)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if result.RefundID != "re_9" || result.Status != gateway.RefundStatusSucceeded {
		t.Fatalf("解析结果异常: %+v", result)
	}

	if _, err := parseRefund(map[string]interface{}{"status": "pending"}, 200); err == nil {
		t.Fatal("缺少退款单号应报错")
	}

	_, err = parseRefund(map[string]interface{}{
		"error": map[string]interface{}{"message": "No such payment_intent"},
	}, 404)
	if err == nil {
		t.Fatal("错误响应应报错")
	}
}
