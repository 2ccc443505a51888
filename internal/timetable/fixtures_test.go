package timetable

import (
	"fmt"
	"testing"
)

// ── 测试辅助 ──

func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newAssignment(id, section, subject string) Assignment {
	return Assignment{
		ID:           id,
		SectionID:    section,
		SectionName:  section,
		SubjectID:    subject,
		SubjectCode:  subject,
		SubjectTitle: subject + " title",
		Semester:     "2025-1",
	}
}

func newSlot(id, assignmentID, room string, day Weekday, start, end ClockTime) Slot {
	return Slot{ID: id, AssignmentID: assignmentID, Room: room, Interval: MustInterval(day, start, end)}
}

func mustAddAssignment(t *testing.T, s *Store, a Assignment) {
	t.Helper()
	if err := s.AddAssignment(a); err != nil {
		t.Fatalf("AddAssignment(%s) 应成功: %v", a.ID, err)
	}
}

func mustAdd(t *testing.T, s *Store, slot Slot) {
	t.Helper()
	if err := s.Add(slot); err != nil {
		t.Fatalf("Add(%s) 应成功: %v", slot.ID, err)
	}
}

func slotIDs(slots []Slot) []string {
	ids := make([]string, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.ID)
	}
	return ids
}
