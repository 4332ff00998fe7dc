package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
)

// ListNorms 全部定额（含历史版本）
// GET /api/norms
func (h *Handler) ListNorms(c *gin.Context) {
	norms, err := h.store.ListNorms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"norms": norms})
}

// UpsertNormRequest 发布定额请求
type UpsertNormRequest struct {
	Warehouse     *string `json:"warehouse"` // null 表示全局默认
	NormA         float64 `json:"normA"`
	NormB         float64 `json:"normB"`
	NormC         float64 `json:"normC"`
	CoefficientK  float64 `json:"coefficientK"`
	CoefficientM  float64 `json:"coefficientM"`
	EffectiveFrom *string `json:"effectiveFrom"` // RFC3339，缺省为当前时刻
}

// UpsertNorm 发布新版本定额：旧版本停用，新版本号自动递增。
// 历史任务记录保留评分时的定额快照，不受影响
// POST /api/norms
func (h *Handler) UpsertNorm(c *gin.Context) {
	var req UpsertNormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的定额负载: " + err.Error()})
		return
	}
	if req.NormA <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "normA 必须为正数"})
		return
	}
	if req.NormB < 0 || req.NormC < 0 || req.CoefficientK < 0 || req.CoefficientM < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "定额参数不可为负"})
		return
	}

	norm := &model.Norm{
		Warehouse:    req.Warehouse,
		NormA:        req.NormA,
		NormB:        req.NormB,
		NormC:        req.NormC,
		CoefficientK: req.CoefficientK,
		CoefficientM: req.CoefficientM,
	}
	if req.EffectiveFrom != nil {
		t, err := time.Parse(time.RFC3339, *req.EffectiveFrom)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "effectiveFrom 格式无效，需 RFC3339"})
			return
		}
		norm.EffectiveFrom = t
	}

	saved, err := h.store.UpsertNorm(norm)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"norm": saved})
}
