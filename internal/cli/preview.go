package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sourav-maji/RosterPro/internal/app"
	"github.com/sourav-maji/RosterPro/internal/dto"
)

// NewPreviewCommand 不经 HTTP 直接生成一次排班预览，可选择立即落库
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		tenantID     string
		userID       string
		departmentID string
		startDate    string
		commit       bool
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "调用求解器生成一周排班预览",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID == "" || departmentID == "" || startDate == "" {
				return fmt.Errorf("--tenant、--department 与 --start 不能为空")
			}
			cfg, logger, err := loadRuntime(rootOpts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, logger, app.Options{SkipMigrations: true})
			if err != nil {
				return err
			}
			defer a.Close()

			preview, err := a.Service.Scheduler.Preview(ctx, tenantID, userID, &dto.PreviewRequest{
				DepartmentID: departmentID,
				StartDate:    startDate,
			})
			if err != nil {
				return err
			}

			var output interface{} = preview
			if commit {
				var runID *string
				if preview.RunID != "" {
					runID = &preview.RunID
				}
				committed, err := a.Service.Scheduler.Save(ctx, tenantID, userID, &dto.SaveScheduleRequest{
					DepartmentID: departmentID,
					Result:       preview.Result,
					Mapping:      preview.Mapping,
					RunID:        runID,
				})
				if err != nil {
					return err
				}
				output = committed
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(output)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "租户 ID")
	cmd.Flags().StringVar(&userID, "user", "rosterctl", "操作人")
	cmd.Flags().StringVar(&departmentID, "department", "", "部门 ID")
	cmd.Flags().StringVar(&startDate, "start", "", "起始日期 YYYY-MM-DD")
	cmd.Flags().BoolVar(&commit, "commit", false, "预览成功后直接落库")
	return cmd
}
