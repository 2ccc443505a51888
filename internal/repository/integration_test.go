//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"campus-registrar/backend/internal/model"
	"campus-registrar/backend/internal/repository"
	"campus-registrar/backend/pkg/database"
	pkgerrors "campus-registrar/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=registrar password=registrar_password dbname=registrar_test sslmode=disable TimeZone=Asia/Manila"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取底层连接失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "数据库迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

type fixture struct {
	semester *model.Semester
	section  *model.Section
	other    *model.Section
	subject  *model.Subject
}

// setupTestData 创建基础测试数据并返回清理函数
func setupTestData(t *testing.T) (*fixture, func()) {
	t.Helper()
	ctx := context.Background()
	suffix := time.Now().UnixNano()

	f := &fixture{}
	f.semester = &model.Semester{
		Code:      fmt.Sprintf("T%d", suffix%1_000_000_000),
		Name:      "测试学期",
		StartDate: time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC),
	}
	if err := testDB.WithContext(ctx).Create(f.semester).Error; err != nil {
		t.Fatalf("创建学期失败: %v", err)
	}

	f.subject = &model.Subject{Code: fmt.Sprintf("CS%d", suffix%1_000_000), Title: "Programming 1", Units: 3, SubjectType: "lecture"}
	if err := testDB.WithContext(ctx).Create(f.subject).Error; err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}

	f.section = &model.Section{Name: "BSIT1-1", ProgramCode: "BSIT", YearLevel: 1, SemesterID: f.semester.SemesterID, Capacity: 40}
	f.other = &model.Section{Name: "BSIT1-2", ProgramCode: "BSIT", YearLevel: 1, SemesterID: f.semester.SemesterID, Capacity: 40}
	for _, s := range []*model.Section{f.section, f.other} {
		if err := testDB.WithContext(ctx).Create(s).Error; err != nil {
			t.Fatalf("创建班级失败: %v", err)
		}
	}

	cleanup := func() {
		testDB.Where("semester_id = ?", f.semester.SemesterID).Delete(&model.Section{})
		testDB.Where("subject_id = ?", f.subject.SubjectID).Delete(&model.Subject{})
		testDB.Unscoped().Where("semester_id = ?", f.semester.SemesterID).Delete(&model.Semester{})
	}
	return f, cleanup
}

func createAssignment(t *testing.T, repo *repository.Repository, f *fixture, section *model.Section) *model.SectionSubject {
	t.Helper()
	ss := &model.SectionSubject{
		SectionSubjectID: uuid.NewString(),
		SectionID:        section.SectionID,
		SubjectID:        f.subject.SubjectID,
		SemesterID:       f.semester.SemesterID,
	}
	if err := repo.SectionSubject.Create(context.Background(), ss); err != nil {
		t.Fatalf("创建课程分配失败: %v", err)
	}
	return ss
}

func createSlot(t *testing.T, repo *repository.Repository, f *fixture, ss *model.SectionSubject, room *string, start, end string) *model.ScheduleSlot {
	t.Helper()
	slot := &model.ScheduleSlot{
		ScheduleSlotID:   uuid.NewString(),
		SectionSubjectID: ss.SectionSubjectID,
		SemesterID:       f.semester.SemesterID,
		RoomName:         room,
		DayOfWeek:        1,
		StartTime:        start,
		EndTime:          end,
	}
	if err := repo.ScheduleSlot.Create(context.Background(), slot); err != nil {
		t.Fatalf("创建排课失败: %v", err)
	}
	return slot
}

// ═══════════════════════════════════════════════════════════
// Test: Semester
// ═══════════════════════════════════════════════════════════

func TestSemester_GetByRefAndActivate(t *testing.T) {
	f, cleanup := setupTestData(t)
	defer cleanup()
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	for _, ref := range []string{f.semester.Code, f.semester.SemesterID} {
		got, err := repo.Semester.GetByRef(ctx, ref)
		if err != nil || got.SemesterID != f.semester.SemesterID {
			t.Errorf("GetByRef(%s) 期望 %s，实际 %v %v", ref, f.semester.SemesterID, got, err)
		}
	}
	if _, err := repo.Semester.GetByRef(ctx, "no-such-code"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际 %v", err)
	}

	operator := "registrar-01"
	if err := repo.Semester.Activate(ctx, f.semester.SemesterID, &operator); err != nil {
		t.Fatalf("Activate 失败: %v", err)
	}
	current, err := repo.Semester.GetCurrent(ctx)
	if err != nil || current.SemesterID != f.semester.SemesterID {
		t.Errorf("激活后当前学期应为 %s，实际 %v %v", f.semester.SemesterID, current, err)
	}
	var active int64
	testDB.Model(&model.Semester{}).Where("is_active = ?", true).Count(&active)
	if active != 1 {
		t.Errorf("只应有一个当前学期，实际 %d", active)
	}

	if err := repo.Semester.Activate(ctx, uuid.NewString(), nil); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("不存在的学期期望 ErrRecordNotFound，实际 %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	f, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := repo.WithTx(tx)

	ss := createAssignment(t, txRepo, f, f.section)
	tx.Rollback()

	_, err = repo.SectionSubject.GetBySectionAndSubject(ctx, f.section.SectionID, f.subject.SubjectID)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("期望回滚后查不到分配 %s，实际: %v", ss.SectionSubjectID, err)
	}
}

func TestTransaction_LockSemester(t *testing.T) {
	f, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	if err := repo.WithTx(tx).ScheduleSlot.LockSemester(ctx, f.semester.SemesterID); err != nil {
		tx.Rollback()
		t.Fatalf("获取学期咨询锁失败: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("Commit 失败: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Overlap queries
// ═══════════════════════════════════════════════════════════

func TestScheduleSlot_Overlap(t *testing.T) {
	f, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	room := "R301"

	ss := createAssignment(t, repo, f, f.section)
	existing := createSlot(t, repo, f, ss, &room, "08:00", "09:00")

	q := repository.OverlapQuery{SemesterID: f.semester.SemesterID, DayOfWeek: 1, StartTime: "08:30", EndTime: "09:30"}

	got, err := repo.ScheduleSlot.FindSectionOverlap(ctx, f.section.SectionID, q)
	if err != nil {
		t.Fatalf("期望找到班级重叠: %v", err)
	}
	if got.ScheduleSlotID != existing.ScheduleSlotID {
		t.Errorf("期望重叠排课 %s，实际 %s", existing.ScheduleSlotID, got.ScheduleSlotID)
	}

	if _, err := repo.ScheduleSlot.FindSectionOverlap(ctx, f.other.SectionID, q); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("其他班级不应重叠，实际: %v", err)
	}

	if _, err := repo.ScheduleSlot.FindRoomOverlap(ctx, room, q); err != nil {
		t.Errorf("期望找到教室重叠: %v", err)
	}

	// 首尾相接不算重叠
	adjacent := repository.OverlapQuery{SemesterID: f.semester.SemesterID, DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"}
	if _, err := repo.ScheduleSlot.FindRoomOverlap(ctx, room, adjacent); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("相邻区间不应重叠，实际: %v", err)
	}

	// 排除自身
	q.ExcludeID = existing.ScheduleSlotID
	if _, err := repo.ScheduleSlot.FindRoomOverlap(ctx, room, q); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("排除自身后不应重叠，实际: %v", err)
	}
}

func TestScheduleSlot_DeleteByRoomAndCascade(t *testing.T) {
	f, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	room := "R302"

	ss := createAssignment(t, repo, f, f.section)
	createSlot(t, repo, f, ss, &room, "10:00", "11:00")
	unroomed := createSlot(t, repo, f, ss, nil, "13:00", "14:00")

	n, err := repo.ScheduleSlot.DeleteByRoom(ctx, room)
	if err != nil {
		t.Fatalf("DeleteByRoom 失败: %v", err)
	}
	if n != 1 {
		t.Errorf("期望删除 1 条，实际 %d", n)
	}

	// 删除班级级联删除分配与排课
	if err := repo.Section.Delete(ctx, f.section.SectionID); err != nil {
		t.Fatalf("删除班级失败: %v", err)
	}
	if _, err := repo.ScheduleSlot.GetByID(ctx, unroomed.ScheduleSlotID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望排课随班级级联删除，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Constraints
// ═══════════════════════════════════════════════════════════

func TestSection_DuplicateNameIsUniqueViolation(t *testing.T) {
	f, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	dup := []model.Section{
		{Name: "BSIT1-3", ProgramCode: "BSIT", YearLevel: 1, SemesterID: f.semester.SemesterID, Capacity: 40},
		{Name: "BSIT1-1", ProgramCode: "BSIT", YearLevel: 1, SemesterID: f.semester.SemesterID, Capacity: 40},
	}
	err := repo.Section.CreateBatch(context.Background(), dup)
	if !pkgerrors.IsUniqueViolation(err) {
		t.Fatalf("期望唯一约束冲突，实际: %v", err)
	}

	names, err := repo.Section.ListNames(context.Background(), "bsit", f.semester.SemesterID)
	if err != nil {
		t.Fatalf("ListNames 失败: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("批量插入失败后不应有新增班级，实际名称: %v", names)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Optimistic Lock
// ═══════════════════════════════════════════════════════════

func TestOptimisticLock_Room_ConflictDetected(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	room := &model.Room{Name: fmt.Sprintf("LAB-%d", time.Now().UnixNano()%1_000_000), Capacity: 30, RoomType: model.RoomTypeLaboratory, IsActive: true}
	if err := repo.Room.Create(ctx, room); err != nil {
		t.Fatalf("创建教室失败: %v", err)
	}
	defer testDB.Unscoped().Where("room_id = ?", room.RoomID).Delete(&model.Room{})

	copy1, _ := repo.Room.GetByID(ctx, room.RoomID)
	copy2, _ := repo.Room.GetByID(ctx, room.RoomID)

	copy1.Capacity = 35
	if err := repo.Room.Update(ctx, copy1); err != nil {
		t.Fatalf("第一次更新应成功: %v", err)
	}

	copy2.IsActive = false
	if err := repo.Room.Update(ctx, copy2); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，得到: %v", err)
	}
}
