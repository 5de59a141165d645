package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/pazar-next/internal/http/response"
	"github.com/pazar-next/internal/repository"
	"github.com/pazar-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateRunRequest 创建结算批次请求
type CreateRunRequest struct {
	RunType     string     `json:"run_type" binding:"required"`
	PeriodStart *time.Time `json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end"`
	OrderIDs    []uint     `json:"order_ids"`
}

// AdminCreateSettlementRun 创建结算批次
func (h *Handler) AdminCreateSettlementRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	run, err := h.SettlementService.StartRun(c.Request.Context(), service.StartRunInput{
		RunType:     req.RunType,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		OrderIDs:    req.OrderIDs,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			respondError(c, response.CodeBadRequest, "批次参数无效", nil)
			return
		}
		respondError(c, response.CodeInternal, "创建结算批次失败", err)
		return
	}

	response.Success(c, run)
}

// AdminListSettlementRuns 结算批次列表
func (h *Handler) AdminListSettlementRuns(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数错误", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数错误", err)
		return
	}

	runs, total, err := h.SettlementService.ListRuns(repository.SettlementRunListFilter{
		Page:        page,
		PageSize:    pageSize,
		RunType:     strings.TrimSpace(c.Query("run_type")),
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询结算批次失败", err)
		return
	}

	response.SuccessWithPage(c, runs, response.NewPagination(page, pageSize, total))
}

// AdminGetSettlementRun 结算批次详情
func (h *Handler) AdminGetSettlementRun(c *gin.Context) {
	runID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	run, err := h.SettlementService.GetRun(runID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "结算批次不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "查询结算批次失败", err)
		return
	}

	response.Success(c, run)
}

// AdminListRunEntries 结算批次分录列表
func (h *Handler) AdminListRunEntries(c *gin.Context) {
	runID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	entries, total, err := h.SettlementService.ListEntries(repository.SettlementEntryListFilter{
		Page:      page,
		PageSize:  pageSize,
		RunID:     runID,
		SellerID:  parseUintQuery(c, "seller_id"),
		Direction: strings.TrimSpace(c.Query("direction")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询结算分录失败", err)
		return
	}

	response.SuccessWithPage(c, entries, response.NewPagination(page, pageSize, total))
}

// AdminTriggerOrderSettlement 触发单笔订单结算
func (h *Handler) AdminTriggerOrderSettlement(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.SettlementService.TriggerOrderSettlement(c.Request.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "订单不存在", nil)
		case errors.Is(err, service.ErrInvalidInput):
			respondError(c, response.CodeBadRequest, "订单状态不可结算", nil)
		default:
			respondError(c, response.CodeInternal, "触发订单结算失败", err)
		}
		return
	}

	response.Success(c, nil)
}

// AdminListPayouts 打款单列表
func (h *Handler) AdminListPayouts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数错误", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "时间参数错误", err)
		return
	}

	payouts, total, err := h.SettlementService.ListPayouts(repository.PayoutListFilter{
		Page:        page,
		PageSize:    pageSize,
		SellerID:    parseUintQuery(c, "seller_id"),
		RunID:       parseUintQuery(c, "run_id"),
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "查询打款单失败", err)
		return
	}

	response.SuccessWithPage(c, payouts, response.NewPagination(page, pageSize, total))
}

// AdminMarkPayoutProcessing 打款单转处理中
func (h *Handler) AdminMarkPayoutProcessing(c *gin.Context) {
	payoutID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	payout, err := h.SettlementService.MarkPayoutProcessing(payoutID)
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	response.Success(c, payout)
}

// AdminMarkPayoutPaid 打款单标记已支付
func (h *Handler) AdminMarkPayoutPaid(c *gin.Context) {
	payoutID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	payout, err := h.SettlementService.MarkPayoutPaid(payoutID)
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	response.Success(c, payout)
}

// PayoutFailRequest 打款失败请求
type PayoutFailRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AdminMarkPayoutFailed 打款单标记失败
func (h *Handler) AdminMarkPayoutFailed(c *gin.Context) {
	payoutID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req PayoutFailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	payout, err := h.SettlementService.MarkPayoutFailed(payoutID, req.Reason)
	if err != nil {
		respondPayoutError(c, err)
		return
	}
	response.Success(c, payout)
}

func respondPayoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "打款单不存在", nil)
	case errors.Is(err, service.ErrPayoutNotProcessable):
		respondError(c, response.CodeBadRequest, "打款单状态不允许该操作", nil)
	default:
		respondError(c, response.CodeInternal, "更新打款单失败", err)
	}
}

// AdminGetSellerSnapshot 卖家结算余额快照
func (h *Handler) AdminGetSellerSnapshot(c *gin.Context) {
	sellerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	snapshot, err := h.SettlementService.GetSellerSnapshot(sellerID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "卖家不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "查询卖家快照失败", err)
		return
	}

	response.Success(c, snapshot)
}
