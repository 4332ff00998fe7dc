package v1

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Grangy/specialist-warehouse-sub000/internal/period"
)

const exportDownloadTTL = 10 * time.Minute

// ExportRequest 导出请求：区间口径与审计接口一致
type ExportRequest struct {
	Period   string `json:"period"`   // today/week/month
	FromDate string `json:"fromDate"` // YYYY-MM-DD，与 ToDate 成对
	ToDate   string `json:"toDate"`
}

// Export 生成审计报告 Excel 并返回一次性下载令牌
// POST /api/export
func (h *Handler) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的导出请求: " + err.Error()})
		return
	}

	rng, ok := h.resolveExportRange(c, req)
	if !ok {
		return
	}

	report, err := h.auditor.Run(rng, nowFunc())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	difficulty, err := h.store.ListDifficulty("", 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("绩效审计报告_%s_%s.xlsx",
		h.resolver.DayKey(rng.From), h.resolver.DayKey(rng.To.Add(-time.Second)))
	outPath := filepath.Join(h.exportDir, fmt.Sprintf("audit_%d.xlsx", time.Now().UnixNano()))

	if err := h.exporter.Export(report, difficulty, outPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token := h.downloads.put(outPath, filename, exportDownloadTTL)
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"filename": filename,
		"expires":  int(exportDownloadTTL.Seconds()),
	})
}

// DownloadExport 按令牌下载导出文件（令牌一次性，下载后作废）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	token := c.Param("token")
	item, ok := h.downloads.get(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载令牌无效或已过期"})
		return
	}

	if _, err := os.Stat(item.filePath); err != nil {
		h.downloads.delete(token)
		c.JSON(http.StatusNotFound, gin.H{"error": "导出文件已被清理"})
		return
	}

	h.downloads.delete(token)
	c.FileAttachment(item.filePath, item.filename)
}

func (h *Handler) resolveExportRange(c *gin.Context, req ExportRequest) (rng period.Range, ok bool) {
	if req.FromDate != "" || req.ToDate != "" {
		if req.FromDate == "" || req.ToDate == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fromDate 与 toDate 必须成对出现"})
			return rng, false
		}
		r, err := h.resolver.ResolveDates(req.FromDate, req.ToDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return rng, false
		}
		return r, true
	}

	symbol := req.Period
	if symbol == "" {
		symbol = "month"
	}
	r, err := h.resolver.Resolve(symbol, nowFunc())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return rng, false
	}
	return r, true
}
