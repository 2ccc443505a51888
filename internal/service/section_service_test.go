package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/pkg/redis"
)

// ── 测试辅助 ──

type mockLocker struct {
	err   error
	names []string
}

func (m *mockLocker) AcquireLock(_ context.Context, name string, _ time.Duration) (*redis.Lock, error) {
	m.names = append(m.names, name)
	if m.err != nil {
		return nil, m.err
	}
	return nil, nil
}

func setupTestSectionService(t *testing.T, locker Locker) (*timetableFixture, SectionService) {
	t.Helper()
	f := setupTimetableFixture(t)
	return f, NewSectionService(f.repo, f.tt, locker, 30*time.Second, zap.NewNop())
}

func bulkReq(count int) *dto.BulkCreateSectionsRequest {
	return &dto.BulkCreateSectionsRequest{
		ProgramCode: "bsit",
		YearLevel:   1,
		SemesterID:  testSemester,
		Count:       count,
	}
}

// ── BulkCreate 测试 ──

func TestSectionService_BulkCreate_ContinuesSequence(t *testing.T) {
	locker := &mockLocker{}
	f, svc := setupTestSectionService(t, locker)

	resp, err := svc.BulkCreate(context.Background(), bulkReq(3), "registrar-01")
	if err != nil {
		t.Fatalf("BulkCreate 失败: %v", err)
	}

	want := []string{"BSIT1-3", "BSIT1-4", "BSIT1-5"}
	if !reflect.DeepEqual(resp.Names, want) {
		t.Errorf("期望 %v，实际 %v", want, resp.Names)
	}
	if len(resp.Sections) != 3 || resp.Sections[0].Capacity != 40 || resp.Sections[0].ProgramCode != "BSIT" {
		t.Errorf("班级信息不符: %+v", resp.Sections)
	}
	if len(f.mocks.sections.sections) != 5 {
		t.Errorf("期望共 5 个班级，实际 %d", len(f.mocks.sections.sections))
	}
	if len(locker.names) != 1 || locker.names[0] != "sections:BSIT:1:"+testSemester {
		t.Errorf("锁范围不符: %v", locker.names)
	}
}

func TestSectionService_BulkCreate_LockHeld(t *testing.T) {
	f, svc := setupTestSectionService(t, &mockLocker{err: redis.ErrLockHeld})

	if _, err := svc.BulkCreate(context.Background(), bulkReq(2), ""); !errors.Is(err, ErrSectionBusy) {
		t.Fatalf("期望 ErrSectionBusy，实际: %v", err)
	}
	if len(f.mocks.sections.sections) != 2 {
		t.Error("锁被占用时不应创建班级")
	}
}

func TestSectionService_BulkCreate_LockUnavailableDegrades(t *testing.T) {
	_, svc := setupTestSectionService(t, &mockLocker{err: errors.New("dial tcp: connection refused")})

	resp, err := svc.BulkCreate(context.Background(), bulkReq(1), "")
	if err != nil {
		t.Fatalf("Redis 不可用时应降级执行: %v", err)
	}
	if len(resp.Names) != 1 || resp.Names[0] != "BSIT1-3" {
		t.Errorf("期望 BSIT1-3，实际 %v", resp.Names)
	}
}

func TestSectionService_BulkCreate_NoLocker(t *testing.T) {
	_, svc := setupTestSectionService(t, nil)

	resp, err := svc.BulkCreate(context.Background(), bulkReq(2), "")
	if err != nil {
		t.Fatalf("BulkCreate 失败: %v", err)
	}
	if !reflect.DeepEqual(resp.Names, []string{"BSIT1-3", "BSIT1-4"}) {
		t.Errorf("名称不符: %v", resp.Names)
	}
}

func TestSectionService_BulkCreate_Errors(t *testing.T) {
	_, svc := setupTestSectionService(t, nil)

	req := bulkReq(1)
	req.SemesterID = "00000000-0000-0000-0000-00000000a002"
	if _, err := svc.BulkCreate(context.Background(), req, ""); !errors.Is(err, ErrSemesterNotFound) {
		t.Errorf("期望 ErrSemesterNotFound，实际: %v", err)
	}

	// 名称比较不区分大小写
	if _, err := svc.Create(context.Background(), &dto.CreateSectionRequest{
		Name: "bsit1-2", ProgramCode: "BSIT", YearLevel: 1, SemesterID: testSemester,
	}, ""); !errors.Is(err, ErrSectionNameTaken) {
		t.Errorf("期望 ErrSectionNameTaken，实际: %v", err)
	}
}

// ── PreviewNext 测试 ──

func TestSectionService_PreviewNext(t *testing.T) {
	_, svc := setupTestSectionService(t, nil)

	resp, err := svc.PreviewNext(context.Background(), &dto.NextSectionNameRequest{
		ProgramCode: "BSIT", YearLevel: 1, SemesterID: testSemester,
	})
	if err != nil {
		t.Fatalf("PreviewNext 失败: %v", err)
	}
	if resp.Next != 3 || resp.Name != "BSIT1-3" {
		t.Errorf("期望 3/BSIT1-3，实际 %+v", resp)
	}

	resp, err = svc.PreviewNext(context.Background(), &dto.NextSectionNameRequest{
		ProgramCode: "BSCS", YearLevel: 2, SemesterID: testSemester,
	})
	if err != nil {
		t.Fatalf("PreviewNext 失败: %v", err)
	}
	if resp.Next != 1 || resp.Name != "BSCS2-1" {
		t.Errorf("期望 1/BSCS2-1，实际 %+v", resp)
	}
}

// ── Delete 测试 ──

func TestSectionService_Delete_CascadesTimetable(t *testing.T) {
	f, svc := setupTestSectionService(t, nil)
	f.mustPlace(t, placeReq(testSection1, testSubject1, testRoomLab, "monday", 2, 0))
	f.mustPlace(t, placeReq(testSection2, testSubject1, testRoomLab, "monday", 3, 0))

	if err := svc.Delete(context.Background(), testSection1); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}

	store := f.tt.state(testSemester).store
	if n := len(store.SlotsForSection(testSection1)); n != 0 {
		t.Errorf("班级排课应从内存课表移除，剩余 %d", n)
	}
	if _, ok := store.AssignmentFor(testSection1, testSubject1); ok {
		t.Error("班级分配应从内存课表移除")
	}
	if n := len(store.SlotsForSection(testSection2)); n != 1 {
		t.Errorf("其他班级排课不受影响，实际 %d", n)
	}

	if err := svc.Delete(context.Background(), testSection1); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("期望 ErrSectionNotFound，实际: %v", err)
	}
}
