package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sourav-maji/RosterPro/config"
	"github.com/sourav-maji/RosterPro/internal/api/handler"
	"github.com/sourav-maji/RosterPro/internal/api/middleware"
	"github.com/sourav-maji/RosterPro/pkg/jwt"
	"github.com/sourav-maji/RosterPro/pkg/metrics"
	"github.com/sourav-maji/RosterPro/pkg/redis"
)

// 权限码（由上游访问控制签发在令牌中）
const (
	PermRequirementView   = "SHIFT_REQ_VIEW"
	PermRequirementCreate = "SHIFT_REQ_CREATE"
	PermRequirementBulk   = "SHIFT_REQ_BULK"
	PermRequirementUpdate = "SHIFT_REQ_UPDATE"
	PermRequirementDelete = "SHIFT_REQ_DELETE"

	PermSchedulerPreview = "SCHEDULER_PREVIEW"
	PermSchedulerSave    = "SCHEDULER_SAVE"
	PermSchedulerView    = "SCHEDULER_VIEW"

	PermAllocView   = "ALLOC_VIEW"
	PermAllocCreate = "ALLOC_CREATE"
	PermAllocSwap   = "ALLOC_SWAP"
	PermAllocUpdate = "ALLOC_UPDATE"
)

// routeSave 保存求解结果的路由模板
const routeSave = "/api/v1/scheduler/save"

// bodyLimits 全局上限之外，保存接口使用单独上限（未配置时沿用全局值）
func bodyLimits(cfg config.ServerConfig) middleware.BodyLimits {
	limits := middleware.BodyLimits{Default: cfg.MaxBodyBytes}
	if cfg.SaveMaxBodyBytes > 0 {
		limits.Routes = map[string]int64{routeSave: cfg.SaveMaxBodyBytes}
	}
	return limits
}

// Setup 初始化并返回 Gin 路由引擎
// rdb、db、m 均可为 nil：分别关闭限流、数据库健康检查与指标
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS))
	r.Use(middleware.BodyLimit(bodyLimits(cfg.Server)))
	if m != nil {
		r.Use(middleware.Metrics(m))
	}

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── 指标 ──
	if m != nil && cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(m.Handler()))
	}

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 人员需求版本
		requirements := v1.Group("/requirements")
		{
			requirements.POST("", middleware.RequirePermission(PermRequirementCreate), h.Requirement.Create)
			requirements.POST("/bulk", middleware.RequirePermission(PermRequirementBulk), h.Requirement.BulkCreate)
			requirements.GET("", middleware.RequirePermission(PermRequirementView), h.Requirement.List)
			requirements.GET("/active", middleware.RequirePermission(PermRequirementView), h.Requirement.Active)
			requirements.GET("/:id", middleware.RequirePermission(PermRequirementView), h.Requirement.Get)
			requirements.PUT("/:id", middleware.RequirePermission(PermRequirementUpdate), h.Requirement.Update)
			requirements.DELETE("/:id", middleware.RequirePermission(PermRequirementDelete), h.Requirement.Delete)
		}

		// 求解编排（预览按租户限流）
		scheduler := v1.Group("/scheduler")
		{
			scheduler.POST("/preview",
				middleware.RequirePermission(PermSchedulerPreview),
				middleware.RateLimit(rdb, cfg.RateLimit.SolverLimit, cfg.RateLimit.SolverWindow),
				h.Scheduler.Preview,
			)
			scheduler.POST("/save", middleware.RequirePermission(PermSchedulerSave), h.Scheduler.Save)
			scheduler.GET("/runs", middleware.RequirePermission(PermSchedulerView), h.Scheduler.ListRuns)
			scheduler.GET("/runs/:id", middleware.RequirePermission(PermSchedulerView), h.Scheduler.GetRun)
			scheduler.POST("/runs/:id/commit", middleware.RequirePermission(PermSchedulerSave), h.Scheduler.CommitRun)
		}

		// 排班记录
		allocations := v1.Group("/allocations")
		{
			allocations.GET("", middleware.RequirePermission(PermAllocView), h.Allocation.List)
			allocations.GET("/board", middleware.RequirePermission(PermAllocView), h.Allocation.Board)
			allocations.GET("/calendar", middleware.RequirePermission(PermAllocView), h.Allocation.Calendar)
			allocations.POST("/manual", middleware.RequirePermission(PermAllocCreate), h.Allocation.ManualAssign)
			allocations.GET("/:id", middleware.RequirePermission(PermAllocView), h.Allocation.Get)
			allocations.POST("/:id/swap", middleware.RequirePermission(PermAllocSwap), h.Allocation.Swap)
			allocations.PUT("/:id/status", middleware.RequirePermission(PermAllocUpdate), h.Allocation.UpdateStatus)
			allocations.GET("/:id/change-logs", middleware.RequirePermission(PermAllocView), h.Allocation.ListChangeLogs)
		}

		// 覆盖率
		v1.GET("/coverage", middleware.RequirePermission(PermAllocView), h.Coverage.Compute)

		// 导出
		export := v1.Group("/export")
		{
			export.GET("/roster", middleware.RequirePermission(PermAllocView), h.Export.ExportRoster)
			export.GET("/calendar", middleware.RequirePermission(PermAllocView), h.Export.ExportCalendar)
		}
	}

	return r
}

// Handler 在路由引擎外层按 Accept-Encoding 压缩响应（排班表导出、运行记录报文等）
func Handler(cfg config.ServerConfig, engine http.Handler) (http.Handler, error) {
	if !cfg.Compress {
		return engine, nil
	}
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, fmt.Errorf("初始化响应压缩失败: %w", err)
	}
	return compress(engine), nil
}
