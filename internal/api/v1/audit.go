package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Grangy/specialist-warehouse-sub000/internal/period"
)

// resolveAuditRange 解析审计区间：period 符号 (today/week/month)、
// 显式 from/to、或 year+month 指定历史月份，都缺省时取本月
func (h *Handler) resolveAuditRange(c *gin.Context) (period.Range, bool) {
	from := c.Query("from")
	to := c.Query("to")
	if from != "" || to != "" {
		if from == "" || to == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from 与 to 必须成对出现 (YYYY-MM-DD)"})
			return period.Range{}, false
		}
		rng, err := h.resolver.ResolveDates(from, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return period.Range{}, false
		}
		return rng, true
	}

	if c.Query("year") != "" || c.Query("month") != "" {
		year, month, ok := parseYearMonth(c)
		if !ok {
			return period.Range{}, false
		}
		return h.resolver.MonthRange(year, month), true
	}

	symbol := c.DefaultQuery("period", "month")
	rng, err := h.resolver.Resolve(symbol, nowFunc())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return period.Range{}, false
	}
	return rng, true
}

// RunAudit 在指定区间上执行公平性审计
// GET /api/audit?period=month 或 ?from=2026-03-01&to=2026-03-31
func (h *Handler) RunAudit(c *gin.Context) {
	rng, ok := h.resolveAuditRange(c)
	if !ok {
		return
	}

	report, err := h.auditor.Run(rng, nowFunc())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// ListDifficulty 货位难度快照
// GET /api/difficulty?warehouse=WH-1&limit=100
func (h *Handler) ListDifficulty(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, ok := parsePositiveInt(c, v, "limit"); ok {
			limit = n
		} else {
			return
		}
	}

	records, err := h.store.ListDifficulty(c.Query("warehouse"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"difficulty": records})
}
