package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sourav-maji/RosterPro/internal/repository"
	"github.com/sourav-maji/RosterPro/internal/seed"
)

// NewSeedCommand 从 YAML 导入部门、班次、员工、角色与需求
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "导入种子数据（可重复执行）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("打开种子文件失败: %w", err)
			}
			defer f.Close()

			fx, err := seed.Load(f)
			if err != nil {
				return err
			}
			data, err := fx.Build()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "tenant=%s roles=%d departments=%d shifts=%d staff=%d requirements=%d\n",
					fx.TenantID, len(data.Roles), len(data.Departments), len(data.Shifts), len(data.Staff), len(data.Requirements))
				return nil
			}

			return withSQLDB(rootOpts, func(run sqlRunner) error {
				res, err := repository.ApplySeed(cmd.Context(), run.gorm, data)
				if err != nil {
					return err
				}
				run.logger.Info("种子数据导入完成",
					zap.String("tenant_id", fx.TenantID),
					zap.Int64("roles", res.Roles),
					zap.Int64("departments", res.Departments),
					zap.Int64("shifts", res.Shifts),
					zap.Int64("staff", res.Staff),
					zap.Int64("requirements", res.Requirements),
				)
				for _, d := range data.Departments {
					fmt.Fprintf(out, "%s\t%s\n", d.DepartmentID, d.Name)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "只解析并统计，不写数据库")
	return cmd
}
