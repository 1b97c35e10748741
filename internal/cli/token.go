package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sourav-maji/RosterPro/pkg/jwt"
)

// NewTokenCommand 签发本地调试用访问令牌
// 生产环境令牌由上游访问控制服务签发，本命令只用于联调
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		tenantID    string
		userID      string
		permissions []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发调试访问令牌",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadRuntime(rootOpts)
			if err != nil {
				return err
			}
			if tenantID == "" || userID == "" {
				return fmt.Errorf("--tenant 与 --user 不能为空")
			}
			token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(userID, tenantID, permissions)
			if err != nil {
				return fmt.Errorf("签发令牌失败: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "租户 ID")
	cmd.Flags().StringVar(&userID, "user", "", "用户 ID")
	cmd.Flags().StringSliceVar(&permissions, "perm", []string{"*"}, "权限码，可重复或逗号分隔")
	return cmd
}
