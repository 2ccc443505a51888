package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/model"
)

// ── 测试辅助 ──

func setupTestSemesterService() (SemesterService, *mockSemesterRepo) {
	repo, mocks := newMockRepository()
	svc := NewSemesterService(repo, zap.NewNop())
	return svc, mocks.semesters
}

// ── Create 测试 ──

func TestSemesterService_Create_Success(t *testing.T) {
	svc, _ := setupTestSemesterService()

	req := &dto.CreateSemesterRequest{
		Code:      "2025-1",
		Name:      "AY 2025-2026 First Semester",
		StartDate: "2025-08-11",
		EndDate:   "2025-12-19",
	}

	result, err := svc.Create(context.Background(), req, "registrar-01")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if result.Code != "2025-1" {
		t.Errorf("期望Code=2025-1，实际=%s", result.Code)
	}
	if result.IsActive {
		t.Error("新创建学期不应默认激活")
	}
}

func TestSemesterService_Create_InvalidDate(t *testing.T) {
	svc, _ := setupTestSemesterService()

	cases := []struct {
		name       string
		start, end string
	}{
		{"结束早于开始", "2025-12-19", "2025-08-11"},
		{"同一天", "2025-08-11", "2025-08-11"},
		{"格式错误", "invalid-date", "2025-12-19"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := &dto.CreateSemesterRequest{Code: "2025-1", Name: "测试学期", StartDate: tc.start, EndDate: tc.end}
			if _, err := svc.Create(context.Background(), req, ""); !errors.Is(err, ErrSemesterDateInvalid) {
				t.Errorf("期望 ErrSemesterDateInvalid，实际: %v", err)
			}
		})
	}
}

func TestSemesterService_Create_DuplicateCode(t *testing.T) {
	svc, _ := setupTestSemesterService()

	req := &dto.CreateSemesterRequest{Code: "2025-1", Name: "第一学期", StartDate: "2025-08-11", EndDate: "2025-12-19"}
	if _, err := svc.Create(context.Background(), req, ""); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}
	if _, err := svc.Create(context.Background(), req, ""); !errors.Is(err, ErrSemesterCodeTaken) {
		t.Errorf("期望 ErrSemesterCodeTaken，实际: %v", err)
	}
}

// ── GetByID / GetCurrent 测试 ──

func TestSemesterService_GetByID_NotFound(t *testing.T) {
	svc, _ := setupTestSemesterService()

	_, err := svc.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, ErrSemesterNotFound) {
		t.Errorf("期望 ErrSemesterNotFound，实际: %v", err)
	}
}

func TestSemesterService_GetCurrent(t *testing.T) {
	svc, semesterRepo := setupTestSemesterService()

	if _, err := svc.GetCurrent(context.Background()); !errors.Is(err, ErrSemesterNotFound) {
		t.Errorf("无活动学期时期望 ErrSemesterNotFound，实际: %v", err)
	}

	semesterRepo.semesters["sem-001"] = &model.Semester{
		SemesterID: "sem-001",
		Code:       "2025-1",
		Name:       "当前学期",
		StartDate:  time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC),
		IsActive:   true,
	}

	result, err := svc.GetCurrent(context.Background())
	if err != nil {
		t.Fatalf("GetCurrent 应成功: %v", err)
	}
	if result.Name != "当前学期" || result.StartDate != "2025-08-11" {
		t.Errorf("返回内容不符: %+v", result)
	}
}

// ── Activate 测试 ──

func TestSemesterService_Activate_Success(t *testing.T) {
	svc, semesterRepo := setupTestSemesterService()
	semesterRepo.semesters["sem-001"] = &model.Semester{SemesterID: "sem-001", Code: "2025-1", IsActive: true}
	semesterRepo.semesters["sem-002"] = &model.Semester{SemesterID: "sem-002", Code: "2025-2"}

	if err := svc.Activate(context.Background(), "sem-002", "registrar-01"); err != nil {
		t.Fatalf("Activate 应成功: %v", err)
	}

	if semesterRepo.semesters["sem-001"].IsActive {
		t.Error("sem-001 应被取消激活")
	}
	if !semesterRepo.semesters["sem-002"].IsActive {
		t.Error("sem-002 应被激活")
	}
}

func TestSemesterService_Activate_NotFound(t *testing.T) {
	svc, _ := setupTestSemesterService()

	err := svc.Activate(context.Background(), "nonexistent", "registrar-01")
	if !errors.Is(err, ErrSemesterNotFound) {
		t.Errorf("期望 ErrSemesterNotFound，实际: %v", err)
	}
}

func TestSemesterService_Activate_RecordsOperator(t *testing.T) {
	svc, semesterRepo := setupTestSemesterService()
	semesterRepo.semesters["sem-001"] = &model.Semester{SemesterID: "sem-001", Code: "2025-1"}

	if err := svc.Activate(context.Background(), "sem-001", "registrar-01"); err != nil {
		t.Fatalf("Activate 应成功: %v", err)
	}
	if by := semesterRepo.semesters["sem-001"].UpdatedBy; by == nil || *by != "registrar-01" {
		t.Errorf("应记录激活操作人，实际 %v", by)
	}
}

// ── Resolve 测试 ──

func TestSemesterService_Resolve(t *testing.T) {
	svc, semesterRepo := setupTestSemesterService()
	semesterRepo.semesters["sem-001"] = &model.Semester{SemesterID: "sem-001", Code: "2025-1", IsActive: true}
	semesterRepo.semesters["sem-002"] = &model.Semester{SemesterID: "sem-002", Code: "2025-2"}

	tests := []struct {
		name   string
		ref    string
		wantID string
	}{
		{"按代码", " 2025-2 ", "sem-002"},
		{"按ID", "sem-002", "sem-002"},
		{"空值为当前学期", "", "sem-001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Resolve(context.Background(), tt.ref)
			if err != nil {
				t.Fatalf("Resolve 失败: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("期望 %s，实际 %s", tt.wantID, got.ID)
			}
		})
	}

	if _, err := svc.Resolve(context.Background(), "2030-9"); !errors.Is(err, ErrSemesterNotFound) {
		t.Errorf("期望 ErrSemesterNotFound，实际: %v", err)
	}
}
