package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/pazar-next/internal/gateway"
	"github.com/pazar-next/internal/http/response"
	"github.com/pazar-next/internal/repository"
	"github.com/pazar-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateReturnRequest 登记退货请求
type CreateReturnRequest struct {
	OrderID      uint   `json:"order_id" binding:"required"`
	OrderItemID  *uint  `json:"order_item_id"`
	UserID       uint   `json:"user_id" binding:"required"`
	Reason       string `json:"reason"`
	RefundMethod string `json:"refund_method" binding:"required"`
	RefundAmount string `json:"refund_amount" binding:"required"`
}

// AdminCreateReturn 登记买家退货请求
func (h *Handler) AdminCreateReturn(c *gin.Context) {
	var req CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.RefundAmount))
	if err != nil {
		respondError(c, response.CodeBadRequest, "退款金额格式错误", err)
		return
	}

	request, err := h.RefundService.CreateReturn(service.CreateReturnInput{
		OrderID:      req.OrderID,
		OrderItemID:  req.OrderItemID,
		UserID:       req.UserID,
		Reason:       req.Reason,
		RefundMethod: req.RefundMethod,
		RefundAmount: amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "订单不存在", nil)
		case errors.Is(err, service.ErrRefundAmountExceeded):
			respondError(c, response.CodeBadRequest, "退款金额超出上限", nil)
		case errors.Is(err, service.ErrInvalidInput):
			respondError(c, response.CodeBadRequest, "退货请求参数无效", nil)
		default:
			respondError(c, response.CodeInternal, "登记退货请求失败", err)
		}
		return
	}

	response.Success(c, request)
}

// AdminListReturns 退货请求列表
func (h *Handler) AdminListReturns(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	returns, total, err := h.RefundService.ListReturns(repository.ReturnListFilter{
		Page:     page,
		PageSize: pageSize,
		OrderID:  parseUintQuery(c, "order_id"),
		UserID:   parseUintQuery(c, "user_id"),
		Status:   strings.TrimSpace(c.Query("status")),
		Method:   strings.TrimSpace(c.Query("refund_method")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询退货请求失败", err)
		return
	}

	response.SuccessWithPage(c, returns, response.NewPagination(page, pageSize, total))
}

// AdminGetReturn 退货请求详情
func (h *Handler) AdminGetReturn(c *gin.Context) {
	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	request, err := h.RefundService.GetReturn(returnID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "退货请求不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "查询退货请求失败", err)
		return
	}

	response.Success(c, request)
}

// AdminApproveReturn 审批通过退货请求
func (h *Handler) AdminApproveReturn(c *gin.Context) {
	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	request, err := h.RefundService.ApproveReturn(returnID)
	if err != nil {
		respondReturnError(c, err)
		return
	}
	response.Success(c, request)
}

// RejectReturnRequest 驳回退货请求入参
type RejectReturnRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AdminRejectReturn 驳回退货请求
func (h *Handler) AdminRejectReturn(c *gin.Context) {
	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RejectReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	request, err := h.RefundService.RejectReturn(returnID, req.Reason)
	if err != nil {
		respondReturnError(c, err)
		return
	}
	response.Success(c, request)
}

// AdminProcessRefund 执行退款（走退款渠道）
func (h *Handler) AdminProcessRefund(c *gin.Context) {
	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	request, err := h.RefundService.ProcessRefund(c.Request.Context(), returnID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "退货请求不存在", nil)
		case errors.Is(err, service.ErrReturnNotProcessable):
			respondError(c, response.CodeBadRequest, "退货请求状态不允许退款", nil)
		case errors.Is(err, service.ErrRefundLocked):
			respondError(c, response.CodeTooManyRequests, "退款处理中, 请勿重复提交", nil)
		case errors.Is(err, gateway.ErrUnsupportedProvider):
			respondError(c, response.CodeBadRequest, "订单支付渠道不支持原路退款", nil)
		case errors.Is(err, gateway.ErrMissingPaymentRef):
			respondError(c, response.CodeBadRequest, "订单缺少支付凭证, 无法原路退款", nil)
		default:
			respondError(c, response.CodeInternal, "执行退款失败", err)
		}
		return
	}

	response.Success(c, request)
}

// AdminCompleteRefund 人工确认退款完成（银行转账或渠道延迟回执）
func (h *Handler) AdminCompleteRefund(c *gin.Context) {
	returnID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	request, err := h.RefundService.CompleteRefund(c.Request.Context(), returnID)
	if err != nil {
		respondReturnError(c, err)
		return
	}
	response.Success(c, request)
}

func respondReturnError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "退货请求不存在", nil)
	case errors.Is(err, service.ErrReturnNotProcessable):
		respondError(c, response.CodeBadRequest, "退货请求状态不允许该操作", nil)
	default:
		respondError(c, response.CodeInternal, "更新退货请求失败", err)
	}
}
