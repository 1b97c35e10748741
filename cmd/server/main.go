package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sourav-maji/RosterPro/config"
	"github.com/sourav-maji/RosterPro/internal/app"
	applogger "github.com/sourav-maji/RosterPro/pkg/logger"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("ROSTER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("solver_url", cfg.Solver.URL),
	)

	// 3. 监听系统信号
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 4. 装配并启动
	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Fatal("应用初始化失败", zap.Error(err))
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		logger.Error("服务器异常退出", zap.Error(err))
	}
}
