package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"campus-registrar/backend/pkg/database"
)

func (a *App) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "执行全部未应用的迁移",
		RunE: func(c *cobra.Command, _ []string) error {
			_, sqlDB, err := a.openDB()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(sqlDB, a.logger); err != nil {
				return err
			}
			return a.printVersion(c)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:     "down",
		Short:   "回滚迁移",
		Example: "  schedctl migrate down --steps=1",
		RunE: func(c *cobra.Command, _ []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps 必须大于 0")
			}
			_, sqlDB, err := a.openDB()
			if err != nil {
				return err
			}
			if err := database.RollbackMigrations(sqlDB, steps, a.logger); err != nil {
				return err
			}
			return a.printVersion(c)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "回滚的迁移数")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "显示当前迁移版本",
		RunE: func(c *cobra.Command, _ []string) error {
			if _, _, err := a.openDB(); err != nil {
				return err
			}
			return a.printVersion(c)
		},
	})

	return cmd
}

func (a *App) printVersion(c *cobra.Command) error {
	_, sqlDB, err := a.openDB()
	if err != nil {
		return err
	}
	version, dirty, err := database.MigrationVersion(sqlDB)
	if err != nil {
		return err
	}
	out := c.OutOrStdout()
	if dirty {
		colorProblem.Fprintf(out, "迁移版本 %d（dirty，需要人工处理）\n", version)
		return nil
	}
	colorOK.Fprintf(out, "迁移版本 %d\n", version)
	return nil
}
