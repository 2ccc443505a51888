// Package cli 运维命令行 schedctl：数据库迁移、课表审计、班级命名预览。
package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-registrar/backend/config"
	"campus-registrar/backend/internal/repository"
	"campus-registrar/backend/internal/service"
	"campus-registrar/backend/pkg/database"
	applogger "campus-registrar/backend/pkg/logger"
)

// Version 构建时注入
var Version = "dev"

// App 命令行应用状态；数据库在首个需要它的子命令中打开
type App struct {
	root       *cobra.Command
	configPath string
	noColor    bool

	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
}

// NewApp 创建命令行应用
func NewApp() *App {
	a := &App{}

	a.root = &cobra.Command{
		Use:   "schedctl",
		Short: "教务排课后台运维工具",
		Long: `schedctl 与 HTTP 服务共用配置（config.yaml + REGISTRAR_* 环境变量），
直接连接数据库执行迁移、课表重叠审计与班级命名预览。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if a.noColor {
				DisableColor()
			}
			return a.loadConfig()
		},
	}

	a.root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")
	a.root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "禁用彩色输出")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.migrateCmd())
	a.root.AddCommand(a.auditCmd())
	a.root.AddCommand(a.sectionsCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "schedctl %s\n", Version)
		},
	}
}

// Execute 运行命令行
func (a *App) Execute() error {
	return a.root.Execute()
}

// Close 释放数据库连接与日志缓冲
func (a *App) Close() error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *App) loadConfig() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	// 命令行输出优先，日志只保留警告以上
	logCfg := cfg.Log
	logCfg.Format = "console"
	if logCfg.Level == "info" || logCfg.Level == "debug" {
		logCfg.Level = "warn"
	}
	logger, err := applogger.NewLogger(&logCfg)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

func (a *App) openDB() (*gorm.DB, *sql.DB, error) {
	if a.db == nil {
		db, err := database.NewDB(&a.cfg.Database, a.logger.Level().String(), a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("数据库连接失败: %w", err)
		}
		a.db = db
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return nil, nil, err
	}
	return a.db, sqlDB, nil
}

// services 不连接 Redis：批量建班不在命令行中执行
func (a *App) services() (*service.Service, error) {
	db, _, err := a.openDB()
	if err != nil {
		return nil, err
	}
	return service.NewService(a.cfg, repository.NewRepository(db), nil, a.logger)
}
