package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Grangy/specialist-warehouse-sub000/internal/aggregate"
	"github.com/Grangy/specialist-warehouse-sub000/internal/audit"
	"github.com/Grangy/specialist-warehouse-sub000/internal/exporter"
	"github.com/Grangy/specialist-warehouse-sub000/internal/importer"
	"github.com/Grangy/specialist-warehouse-sub000/internal/ingest"
	"github.com/Grangy/specialist-warehouse-sub000/internal/period"
	"github.com/Grangy/specialist-warehouse-sub000/internal/store"
)

// nowFunc 测试时可替换的时钟
var nowFunc = time.Now

// Handler V1 API 处理器
type Handler struct {
	store      *store.Store
	pipeline   *ingest.Pipeline
	aggregator *aggregate.Aggregator
	recomputer *ingest.Recomputer
	importer   *importer.Coordinator
	auditor    *audit.Auditor
	exporter   *exporter.Exporter
	resolver   period.Resolver
	exportDir  string
	downloads  *exportDownloadStore
}

// NewHandler 创建 V1 API 处理器
func NewHandler(
	st *store.Store,
	pipeline *ingest.Pipeline,
	aggregator *aggregate.Aggregator,
	recomputer *ingest.Recomputer,
	imp *importer.Coordinator,
	auditor *audit.Auditor,
	resolver period.Resolver,
	exportDir string,
) *Handler {
	return &Handler{
		store:      st,
		pipeline:   pipeline,
		aggregator: aggregator,
		recomputer: recomputer,
		importer:   imp,
		auditor:    auditor,
		exporter:   exporter.NewExporter(),
		resolver:   resolver,
		exportDir:  exportDir,
		downloads:  newExportDownloadStore(),
	}
}

// RegisterRoutes 注册 V1 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	// 可用周期
	router.GET("/periods", h.ListPeriods)

	// 完成事件上报
	router.POST("/events", h.PostEvent)

	// 榜单与汇总
	router.GET("/rankings/daily", h.DailyRankings)
	router.GET("/rankings/monthly", h.MonthlyRankings)
	router.GET("/users/:id/daily", h.UserDailyHistory)
	router.GET("/users/:id/tasks", h.UserTaskHistory)

	// 定额管理
	router.GET("/norms", h.ListNorms)
	router.POST("/norms", h.UpsertNorm)

	// 运行时配置
	router.GET("/config", h.GetConfig)
	router.PATCH("/config", h.UpdateConfig)

	// 批量重算
	router.POST("/recompute", h.Recompute)

	// 公平性审计
	router.GET("/audit", h.RunAudit)

	// 货位难度
	router.GET("/difficulty", h.ListDifficulty)

	// 数据导入
	router.POST("/import", h.Import)

	// 报告导出
	router.POST("/export", h.Export)
	router.GET("/export/download/:token", h.DownloadExport)

	// 任务日志
	router.GET("/jobs", h.ListJobs)
}
