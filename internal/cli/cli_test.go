package cli

import (
	"bytes"
	"strings"
	"testing"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/timetable"
)

func init() {
	DisableColor()
}

func TestPrintAudit_Clean(t *testing.T) {
	var buf bytes.Buffer
	printAudit(&buf, &dto.AuditResponse{SemesterID: "sem-1", Slots: 12})

	out := buf.String()
	if !strings.Contains(out, "共 12 条排课") || !strings.Contains(out, "未发现重叠") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPrintAudit_Collisions(t *testing.T) {
	room := "R301"
	var buf bytes.Buffer
	printAudit(&buf, &dto.AuditResponse{
		SemesterID: "sem-1",
		Slots:      2,
		Collisions: []dto.CollisionResponse{{
			Kind: "room",
			Key:  "R301",
			First: dto.SlotDetail{
				SlotRecord:  timetable.SlotRecord{ID: "slot-1", RoomName: &room, Day: "monday", StartTime: "09:00", EndTime: "10:00"},
				SectionName: "BSIT1-1",
				SubjectCode: "CS101",
			},
			Other: dto.SlotDetail{
				SlotRecord:  timetable.SlotRecord{ID: "slot-2", RoomName: &room, Day: "monday", StartTime: "09:30", EndTime: "10:30"},
				SectionName: "BSIT1-2",
				SubjectCode: "CS102",
			},
		}},
	})

	out := buf.String()
	for _, want := range []string{"发现 1 处重叠", "[教室 R301]", "09:00-10:00  CS101 (BSIT1-1) @ R301", "slot-2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestVersionCommand_SkipsConfig(t *testing.T) {
	app := NewApp()
	var buf bytes.Buffer
	app.root.SetOut(&buf)
	app.root.SetArgs([]string{"version"})

	if err := app.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "schedctl ") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestSectionsNext_RequiresFlags(t *testing.T) {
	app := NewApp()
	app.root.SetOut(&bytes.Buffer{})
	app.root.SetErr(&bytes.Buffer{})
	// 跳过配置加载，只验证参数校验
	app.root.PersistentPreRunE = nil
	app.root.SetArgs([]string{"sections", "next", "--program=BSIT"})

	if err := app.Execute(); err == nil || !strings.Contains(err.Error(), "required flag") {
		t.Errorf("expected required flag error, got %v", err)
	}
}
