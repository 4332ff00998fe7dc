package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

// PostEvent 上报单个完成事件：评分落库并实时重算受影响的日/月。
// 不合格事件返回 202 与跳过标记，不算请求错误
// POST /api/events
func (h *Handler) PostEvent(c *gin.Context) {
	var ev model.TaskCompletionEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的事件负载: " + err.Error()})
		return
	}

	records, err := h.pipeline.ProcessAndRecompute(&ev, h.aggregator)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusAccepted, gin.H{
			"skipped": true,
			"taskId":  ev.TaskID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"skipped": false,
		"records": records,
	})
}
