package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sourav-maji/RosterPro/pkg/database"
)

// NewMigrateCommand 数据库迁移
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "执行或回滚数据库迁移",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "执行全部未应用的迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQLDB(rootOpts, func(run sqlRunner) error {
				return database.RunMigrations(run.db, run.logger)
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "回滚最近的迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps 必须大于 0")
			}
			return withSQLDB(rootOpts, func(run sqlRunner) error {
				return database.RollbackMigrations(run.db, steps, run.logger)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "回滚步数")

	cmd.AddCommand(up, down)
	return cmd
}
