package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RecomputeRequest 批量重算请求
type RecomputeRequest struct {
	FromDate string `json:"fromDate"` // YYYY-MM-DD
	ToDate   string `json:"toDate"`   // YYYY-MM-DD
}

// Recompute 批量重算日期区间 (SSE 流式响应)
// POST /api/recompute
func (h *Handler) Recompute(c *gin.Context) {
	var req RecomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的重算请求: " + err.Error()})
		return
	}
	if req.FromDate == "" || req.ToDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fromDate 与 toDate 必填"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "不支持流式响应"})
		return
	}

	progressChan := h.recomputer.Recompute(c.Request.Context(), req.FromDate, req.ToDate)

	for event := range progressChan {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
