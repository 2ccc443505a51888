package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"campus-registrar/backend/internal/dto"
)

func (a *App) sectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "班级工具",
	}
	cmd.AddCommand(a.sectionsNextCmd())
	return cmd
}

func (a *App) sectionsNextCmd() *cobra.Command {
	var (
		req         dto.NextSectionNameRequest
		semesterRef string
	)

	cmd := &cobra.Command{
		Use:     "next",
		Short:   "预览下一个顺序班级名称",
		Example: "  schedctl sections next --program=BSIT --year=1 --semester=2025-1",
		RunE: func(c *cobra.Command, _ []string) error {
			svc, err := a.services()
			if err != nil {
				return err
			}
			ctx := context.Background()
			semester, err := svc.Semester.Resolve(ctx, semesterRef)
			if err != nil {
				return fmt.Errorf("获取学期失败: %w", err)
			}
			req.SemesterID = semester.ID

			result, err := svc.Section.PreviewNext(ctx, &req)
			if err != nil {
				return err
			}
			if result.Next == 0 {
				return fmt.Errorf("--program 与 --year 必须有效")
			}
			colorOK.Fprintln(c.OutOrStdout(), result.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.ProgramCode, "program", "", "专业代码，如 BSIT")
	cmd.Flags().IntVar(&req.YearLevel, "year", 0, "年级")
	cmd.Flags().StringVar(&semesterRef, "semester", "", "学期 ID 或代码（默认当前学期）")
	_ = cmd.MarkFlagRequired("program")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}
