package timetable

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestBoard_AllViewsRefreshOnMutation(t *testing.T) {
	s := NewStore()
	board := NewBoard(s, halfHourGrid(), 0, nil)
	defer board.Stop()

	sectionView := SectionScope("BSIT1-1")
	roomView := RoomScope("R301")
	for _, scope := range []Scope{sectionView, roomView} {
		if _, err := board.Open(scope); err != nil {
			t.Fatalf("打开视图 %s 失败: %v", scope, err)
		}
	}

	sess := sectionSession(t, s, nil, "BSIT1-1", "R301")
	p, err := dragDrop(t, sess, cs("CS101"), Monday, 4, 2)
	if err != nil {
		t.Fatal(err)
	}

	for _, scope := range []Scope{sectionView, roomView} {
		g, err := board.View(scope)
		if err != nil {
			t.Fatalf("视图 %s 投影失败: %v", scope, err)
		}
		c, _ := g.Cell(Monday, 4)
		if c.State != CellAnchor || c.Slot.ID != p.Slot.ID {
			t.Errorf("视图 %s 未反映新排课: %+v", scope, c)
		}
		if g.Version != s.Version() {
			t.Errorf("视图 %s 版本落后", scope)
		}
	}

	if err := sess.Remove(context.Background(), p.Slot.ID); err != nil {
		t.Fatal(err)
	}
	for _, scope := range []Scope{sectionView, roomView} {
		g, _ := board.View(scope)
		if len(g.Anchors()) != 0 {
			t.Errorf("视图 %s 删除后仍显示排课", scope)
		}
	}
}

func TestBoard_ClosedViewIsNotTracked(t *testing.T) {
	s := NewStore()
	board := NewBoard(s, halfHourGrid(), 0, nil)
	defer board.Stop()

	scope := SectionScope("BSIT1-1")
	if _, err := board.Open(scope); err != nil {
		t.Fatal(err)
	}
	board.Close(scope)

	if _, err := board.View(scope); err == nil {
		t.Error("关闭后的视图不应可读")
	}
	if len(board.Scopes()) != 0 {
		t.Errorf("期望无打开的视图，实际 %v", board.Scopes())
	}
}

func TestBoard_IntegrityViolationSurfaces(t *testing.T) {
	s := seedScenario(t)
	board := NewBoard(s, weekdayGrid(), 0, nil)
	defer board.Stop()

	scope := SectionScope("BSIT1-1")
	if _, err := board.Open(scope); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, s, candidate(s, "s-1", "a-1", "", MustInterval(Monday, Clock(9, 0), Clock(11, 0))))
	mustAdd(t, s, candidate(s, "s-2", "a-3", "", MustInterval(Monday, Clock(10, 0), Clock(12, 0))))

	g, err := board.View(scope)
	if !errors.Is(err, ErrIntegrityViolation) || g != nil {
		t.Errorf("期望视图报告 ErrIntegrityViolation，实际 %v", err)
	}

	s.Remove("s-2")
	if _, err := board.View(scope); err != nil {
		t.Errorf("数据恢复一致后视图应恢复: %v", err)
	}
}

func TestBoard_EvictsLeastRecentlyUsed(t *testing.T) {
	s := NewStore()
	board := NewBoard(s, halfHourGrid(), 2, nil)
	defer board.Stop()

	first, second, third := SectionScope("BSIT1-1"), RoomScope("R301"), RoomScope("R302")
	for _, scope := range []Scope{first, second} {
		if _, err := board.Open(scope); err != nil {
			t.Fatal(err)
		}
	}
	// 访问 first 后 second 成为最久未访问
	if _, err := board.View(first); err != nil {
		t.Fatal(err)
	}
	if _, err := board.Open(third); err != nil {
		t.Fatal(err)
	}

	if n := len(board.Scopes()); n != 2 {
		t.Fatalf("视图数应保持在上限 2，实际 %d", n)
	}
	if _, err := board.View(second); err == nil {
		t.Error("最久未访问的视图应被关闭")
	}
	for _, scope := range []Scope{first, third} {
		if _, err := board.View(scope); err != nil {
			t.Errorf("视图 %s 应仍然打开: %v", scope, err)
		}
	}

	for i := 0; i < 100; i++ {
		if _, err := board.Open(RoomScope(fmt.Sprintf("R%03d", i))); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(board.Scopes()); n != 2 {
		t.Errorf("大量打开后视图数仍应为 2，实际 %d", n)
	}
}
