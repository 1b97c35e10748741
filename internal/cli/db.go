package cli

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sourav-maji/RosterPro/pkg/database"
)

type sqlRunner struct {
	gorm   *gorm.DB
	db     *sql.DB
	logger *zap.Logger
}

// withSQLDB 打开数据库连接，执行 fn 后关闭
func withSQLDB(rootOpts *RootOptions, fn func(run sqlRunner) error) error {
	cfg, logger, err := loadRuntime(rootOpts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	gdb, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()

	return fn(sqlRunner{gorm: gdb, db: sqlDB, logger: logger})
}
