package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"campus-registrar/backend/internal/dto"
)

// ErrCollisionsFound 审计发现重叠，命令以非零状态退出
var ErrCollisionsFound = errors.New("课表存在重叠排课")

func (a *App) auditCmd() *cobra.Command {
	var semesterRef string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "扫描学期课表中的班级/教室重叠",
		Long: `从数据库加载整个学期的课表，按班级与教室逐日扫描，列出所有时间重叠的排课对。

正常情况下放置流程会拒绝冲突；发现重叠说明有绕过校验的写入，需要人工处理。
未指定 --semester 时审计当前学期。`,
		Example: `  schedctl audit
  schedctl audit --semester=2025-1`,
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

			result, err := svc.Timetable.Audit(ctx, semester.ID)
			if err != nil {
				return err
			}
			printAudit(c.OutOrStdout(), result)
			if len(result.Collisions) > 0 {
				return ErrCollisionsFound
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&semesterRef, "semester", "", "学期 ID 或代码（默认当前学期）")
	return cmd
}

func printAudit(w io.Writer, result *dto.AuditResponse) {
	colorHeader.Fprintf(w, "学期 %s：共 %d 条排课\n", result.SemesterID, result.Slots)

	if len(result.Collisions) == 0 {
		colorOK.Fprintln(w, "未发现重叠")
		return
	}

	colorProblem.Fprintf(w, "发现 %d 处重叠\n", len(result.Collisions))
	for i, c := range result.Collisions {
		what := "班级"
		if c.Kind == "room" {
			what = "教室"
		}
		fmt.Fprintf(w, "%3d. [%s %s]\n", i+1, what, c.Key)
		fmt.Fprintf(w, "     %s\n", describe(c.First))
		fmt.Fprintf(w, "     %s\n", describe(c.Other))
	}
}

func describe(s dto.SlotDetail) string {
	text := fmt.Sprintf("%-9s %s-%s  %s (%s)", s.Day, s.StartTime, s.EndTime, s.SubjectCode, s.SectionName)
	if s.RoomName != nil {
		text += " @ " + *s.RoomName
	}
	return text + colorMuted.Sprintf("  %s", s.ID)
}
