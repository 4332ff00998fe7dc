package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized bool   `json:"initialized"` // 是否已有任务数据
	TaskRecords int    `json:"taskRecords"` // 任务记录总数
	LatestDate  string `json:"latestDate"`  // 最近有汇总数据的自然日
	NormVersion int    `json:"normVersion"` // 当前全局定额版本
	ServerTime  string `json:"serverTime"`
}

// GetStatus 获取系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	resp := StatusResponse{
		ServerTime: time.Now().UTC().Format(time.RFC3339),
	}

	count, err := h.store.CountTaskRecords()
	if err == nil {
		resp.TaskRecords = count
		resp.Initialized = count > 0
	}

	if dates, err := h.store.AvailableDates(); err == nil && len(dates) > 0 {
		resp.LatestDate = dates[0]
	}

	if n, err := h.store.ActiveGlobalNorm(time.Now()); err == nil && n != nil {
		resp.NormVersion = n.Version
	}

	c.JSON(http.StatusOK, resp)
}

// ListPeriods 可用的统计周期
// GET /api/periods
func (h *Handler) ListPeriods(c *gin.Context) {
	dates, err := h.store.AvailableDates()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	months, err := h.store.AvailableMonths()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"dates":  dates,
		"months": months,
	})
}

// ListJobs 最近的导入/重算任务日志
// GET /api/jobs
func (h *Handler) ListJobs(c *gin.Context) {
	logs, err := h.store.ListJobLogs(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": logs})
}
