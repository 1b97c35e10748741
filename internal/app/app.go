// Package app 负责依赖装配与 HTTP 服务生命周期，供 cmd/server 与 rosterctl serve 共用。
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sourav-maji/RosterPro/config"
	"github.com/sourav-maji/RosterPro/internal/api/handler"
	"github.com/sourav-maji/RosterPro/internal/api/router"
	"github.com/sourav-maji/RosterPro/internal/repository"
	"github.com/sourav-maji/RosterPro/internal/service"
	"github.com/sourav-maji/RosterPro/pkg/archive"
	"github.com/sourav-maji/RosterPro/pkg/database"
	"github.com/sourav-maji/RosterPro/pkg/jwt"
	"github.com/sourav-maji/RosterPro/pkg/metrics"
	"github.com/sourav-maji/RosterPro/pkg/redis"
	"github.com/sourav-maji/RosterPro/pkg/solver"
)

// App 装配完成的应用
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	rdb     *redis.Client
	Service *service.Service
	server  *http.Server
}

// Options 装配选项
type Options struct {
	// SkipMigrations 为 true 时不在启动阶段执行迁移
	SkipMigrations bool
}

// New 依次连接数据库、执行迁移、连接 Redis 并完成 Repository → Service → Handler 注入
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	// 1. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	logger.Info("数据库连接成功")

	// 1.1 执行数据库迁移
	if !opts.SkipMigrations {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	// 2. 连接 Redis（可选：连接失败时降级运行，求解接口不限流）
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，求解接口限流将不可用", zap.Error(err))
		rdb = nil
	}

	// 3. 指标
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// 4. 运行记录归档
	var store archive.Store = archive.Nop{}
	if cfg.Archive.Enabled {
		s3Store, err := archive.NewS3Store(ctx, &cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("初始化归档存储失败: %w", err)
		}
		store = s3Store
		logger.Info("运行记录归档已启用", zap.String("bucket", cfg.Archive.Bucket))
	}

	// 5. 依赖注入: Repository → Service → Handler
	svc := service.NewService(service.Deps{
		Provider:      repository.NewProvider(db),
		Solver:        solver.NewClient(&cfg.Solver, logger),
		Archive:       store,
		ArchivePrefix: cfg.Archive.Prefix,
		Metrics:       m,
		Logger:        logger,
	})
	h := handler.NewHandler(svc)

	// 6. 初始化路由
	jwtMgr := jwt.NewManager(&cfg.Auth)
	engine := router.Setup(cfg, h, jwtMgr, rdb, db, m, logger)
	httpHandler, err := router.Handler(cfg.Server, engine)
	if err != nil {
		return nil, err
	}

	// 求解调用可能接近 solver.timeout，写超时需留出余量
	writeTimeout := 15 * time.Second
	if cfg.Solver.Timeout+5*time.Second > writeTimeout {
		writeTimeout = cfg.Solver.Timeout + 5*time.Second
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		rdb:     rdb,
		Service: svc,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      httpHandler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}, nil
}

// Run 启动 HTTP 服务器，ctx 取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP 服务器已启动", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP 服务器异常: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("收到关闭信号，开始优雅关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("服务器关闭异常", zap.Error(err))
		return err
	}
	return nil
}

// Close 释放数据库与 Redis 连接
func (a *App) Close() {
	if sqlDB, _ := a.db.DB(); sqlDB != nil {
		_ = sqlDB.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	a.logger.Info("服务器已关闭")
}
