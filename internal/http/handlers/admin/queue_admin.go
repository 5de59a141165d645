package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/pazar-next/internal/http/response"
	"github.com/pazar-next/internal/queue"

	"github.com/gin-gonic/gin"
)

// AdminQueueStats 结算队列统计
func (h *Handler) AdminQueueStats(c *gin.Context) {
	stats, err := h.QueueInspector.Stats()
	if err != nil {
		if errors.Is(err, queue.ErrInspectorDisabled) {
			respondError(c, response.CodeBadRequest, "队列未启用", nil)
			return
		}
		respondError(c, response.CodeInternal, "查询队列统计失败", err)
		return
	}
	response.Success(c, stats)
}

// AdminPauseQueues 暂停结算队列消费
func (h *Handler) AdminPauseQueues(c *gin.Context) {
	if err := h.QueueInspector.PauseWorkers(); err != nil {
		if errors.Is(err, queue.ErrInspectorDisabled) {
			respondError(c, response.CodeBadRequest, "队列未启用", nil)
			return
		}
		respondError(c, response.CodeInternal, "暂停队列失败", err)
		return
	}
	response.Success(c, nil)
}

// AdminResumeQueues 恢复结算队列消费
func (h *Handler) AdminResumeQueues(c *gin.Context) {
	if err := h.QueueInspector.ResumeWorkers(); err != nil {
		if errors.Is(err, queue.ErrInspectorDisabled) {
			respondError(c, response.CodeBadRequest, "队列未启用", nil)
			return
		}
		respondError(c, response.CodeInternal, "恢复队列失败", err)
		return
	}
	response.Success(c, nil)
}

// AdminListArchivedTasks 死信任务列表
func (h *Handler) AdminListArchivedTasks(c *gin.Context) {
	queueName := strings.TrimSpace(c.Query("queue"))
	if queueName == "" {
		respondError(c, response.CodeBadRequest, "缺少 queue 参数", nil)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	tasks, err := h.QueueInspector.ListArchived(queueName, page, pageSize)
	if err != nil {
		if errors.Is(err, queue.ErrInspectorDisabled) {
			respondError(c, response.CodeBadRequest, "队列未启用", nil)
			return
		}
		respondError(c, response.CodeInternal, "查询死信任务失败", err)
		return
	}
	response.Success(c, tasks)
}
