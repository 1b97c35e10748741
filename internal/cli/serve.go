package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sourav-maji/RosterPro/internal/app"
)

// NewServeCommand 启动 HTTP 服务
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadRuntime(rootOpts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger, app.Options{SkipMigrations: skipMigrations})
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "启动时不执行数据库迁移")
	return cmd
}
