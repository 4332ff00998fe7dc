package server

import (
	"log"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/Grangy/specialist-warehouse-sub000/internal/aggregate"
	v1 "github.com/Grangy/specialist-warehouse-sub000/internal/api/v1"
	"github.com/Grangy/specialist-warehouse-sub000/internal/audit"
	"github.com/Grangy/specialist-warehouse-sub000/internal/config"
	"github.com/Grangy/specialist-warehouse-sub000/internal/difficulty"
	"github.com/Grangy/specialist-warehouse-sub000/internal/importer"
	"github.com/Grangy/specialist-warehouse-sub000/internal/ingest"
	"github.com/Grangy/specialist-warehouse-sub000/internal/period"
	"github.com/Grangy/specialist-warehouse-sub000/internal/scoring"
	"github.com/Grangy/specialist-warehouse-sub000/internal/store"
)

// Server HTTP 服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	v1     *v1.Handler
}

// NewServer 创建服务器：打开数据库并装配全部业务组件
func NewServer(cfg *config.AppConfig) *Server {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		dataDir = cfg.Data.DataDir
	}
	dbPath := filepath.Join(dataDir, "pickstat.db")

	sqliteStore, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}

	resolver := period.NewResolver(cfg.Business.CivilOffsetHours)

	scoreCfg := scoring.Config{
		EfficiencyMin: cfg.Business.EfficiencyMin,
		EfficiencyMax: cfg.Business.EfficiencyMax,
		DictatorShare: cfg.Business.DictatorShare,
	}

	learnerCfg := difficulty.Config{
		CutoverWarehouse: cfg.Business.DifficultyCutoverWarehouse,
	}
	if at, ok, err := cfg.Business.CutoverInstant(); err != nil {
		log.Printf("难度剔除配置无效，已忽略: %v", err)
	} else if ok {
		learnerCfg.CutoverAt = at
		learnerCfg.CutoverEnabled = learnerCfg.CutoverWarehouse != ""
	}

	norms := scoring.NewNormService(sqliteStore)
	learner := difficulty.NewLearner(sqliteStore, learnerCfg)
	pipeline := ingest.NewPipeline(sqliteStore, norms, learner, scoreCfg)
	aggregator := aggregate.NewAggregator(sqliteStore, sqliteStore, resolver)
	recomputer := ingest.NewRecomputer(aggregator, sqliteStore, resolver)
	importCoord := importer.NewCoordinator(pipeline, aggregator, sqliteStore, resolver)
	auditor := audit.NewAuditor(sqliteStore, audit.DefaultConfig())

	exportDir := filepath.Join(dataDir, "exports")

	v1Handler := v1.NewHandler(sqliteStore, pipeline, aggregator, recomputer, importCoord, auditor, resolver, exportDir)

	s := &Server{
		router: gin.Default(),
		store:  sqliteStore,
		v1:     v1Handler,
	}

	s.setupRoutes()
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")
	{
		s.v1.RegisterRoutes(api)
	}
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 关闭底层资源
func (s *Server) Close() error {
	return s.store.Close()
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
