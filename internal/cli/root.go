// Package cli rosterctl 命令行：服务启动、迁移、签发调试令牌、导入种子数据与排班预览。
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sourav-maji/RosterPro/config"
	applogger "github.com/sourav-maji/RosterPro/pkg/logger"
)

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand 创建 rosterctl 根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "rosterctl",
		Short:         "RosterPro 排班核心服务管理工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))

	return cmd
}

// loadRuntime 加载配置并初始化日志
func loadRuntime(opts *RootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, logger, nil
}
