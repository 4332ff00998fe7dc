package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetConfig 全部运行时配置项
// GET /api/config
func (h *Handler) GetConfig(c *gin.Context) {
	cfg, err := h.store.GetAllConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": cfg})
}

// UpdateConfig 批量写入运行时配置项（键值均为字符串）
// PATCH /api/config
func (h *Handler) UpdateConfig(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的配置负载: " + err.Error()})
		return
	}
	if len(req) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "配置项为空"})
		return
	}

	for key, value := range req {
		if key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "配置键不可为空"})
			return
		}
		if err := h.store.SetConfig(key, value); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	cfg, err := h.store.GetAllConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": cfg})
}
