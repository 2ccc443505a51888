package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"campus-registrar/backend/config"
	"campus-registrar/backend/internal/model"
	"campus-registrar/backend/internal/repository"
	"campus-registrar/backend/internal/timetable"
)

// ErrTimetableLoad 从数据库构建课表失败（数据不合法）
var ErrTimetableLoad = errors.New("课表数据加载失败")

// NewGridConfig 将配置文件中的课表窗口转换为网格配置
func NewGridConfig(cfg *config.TimetableConfig) (timetable.GridConfig, error) {
	open, err := timetable.ParseClock(cfg.Open)
	if err != nil {
		return timetable.GridConfig{}, fmt.Errorf("timetable.open: %w", err)
	}
	closeAt, err := timetable.ParseClock(cfg.Close)
	if err != nil {
		return timetable.GridConfig{}, fmt.Errorf("timetable.close: %w", err)
	}
	days := make([]timetable.Weekday, 0, len(cfg.Days))
	for _, d := range cfg.Days {
		days = append(days, timetable.Weekday(d))
	}
	grid := timetable.GridConfig{Days: days, Open: open, Close: closeAt, Tick: cfg.Tick}
	if err := grid.Validate(); err != nil {
		return timetable.GridConfig{}, err
	}
	return grid, nil
}

// semesterState 单个学期的内存课表
// mu 串行化该学期内的加载、放置与删除；读取网格只需保证已加载
type semesterState struct {
	mu     sync.Mutex
	store  *timetable.Store
	board  *timetable.Board
	loaded bool
	// stale 远端拒绝或发现本地缺失的数据后置位，下次访问时重新加载
	stale bool
}

// timetables 按学期懒加载的内存课表集合，所有请求共享
type timetables struct {
	repo     *repository.Repository
	grid     timetable.GridConfig
	maxViews int
	validate *validator.Validate
	logger   *zap.Logger

	mu        sync.Mutex
	semesters map[string]*semesterState
}

func newTimetables(repo *repository.Repository, grid timetable.GridConfig, maxViews int, logger *zap.Logger) *timetables {
	return &timetables{
		repo:      repo,
		grid:      grid,
		maxViews:  maxViews,
		validate:  validator.New(),
		logger:    logger,
		semesters: make(map[string]*semesterState),
	}
}

func (t *timetables) state(semesterID string) *semesterState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.semesters[semesterID]
	if !ok {
		store := timetable.NewStore()
		st = &semesterState{
			store: store,
			board: timetable.NewBoard(store, t.grid, t.maxViews, t.logger.With(zap.String("semester_id", semesterID))),
		}
		t.semesters[semesterID] = st
	}
	return st
}

// acquire 取得学期课表的独占权（必要时先从数据库加载），调用方负责 release
func (t *timetables) acquire(ctx context.Context, semesterID string) (*semesterState, func(), error) {
	st := t.state(semesterID)
	st.mu.Lock()
	if !st.loaded || st.stale {
		if err := t.hydrate(ctx, semesterID, st.store); err != nil {
			st.mu.Unlock()
			return nil, nil, err
		}
		st.loaded, st.stale = true, false
	}
	return st, st.mu.Unlock, nil
}

// load 保证学期课表已加载，返回后不持有锁
func (t *timetables) load(ctx context.Context, semesterID string) (*semesterState, error) {
	st, release, err := t.acquire(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	release()
	return st, nil
}

// all 内存中已创建的学期课表
func (t *timetables) all() []*semesterState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*semesterState, 0, len(t.semesters))
	for _, st := range t.semesters {
		out = append(out, st)
	}
	return out
}

// removeRoom 教室归档后从所有已加载的课表中移除该教室的排课
func (t *timetables) removeRoom(room string) int {
	removed := 0
	for _, st := range t.all() {
		st.mu.Lock()
		if st.loaded {
			removed += len(st.store.RemoveRoom(room))
		}
		st.mu.Unlock()
	}
	return removed
}

// removeSection 班级删除后从该学期课表中移除其分配与排课
func (t *timetables) removeSection(semesterID, sectionID string) {
	t.mu.Lock()
	st, ok := t.semesters[semesterID]
	t.mu.Unlock()
	if !ok {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.loaded {
		st.store.RemoveSection(sectionID)
	}
}

// hydrate 用数据库中的分配与排课整体替换内存存储
func (t *timetables) hydrate(ctx context.Context, semesterID string, store *timetable.Store) error {
	links, err := t.repo.SectionSubject.ListBySemester(ctx, semesterID)
	if err != nil {
		t.logger.Error("加载课程分配失败", zap.String("semester_id", semesterID), zap.Error(err))
		return err
	}
	rows, err := t.repo.ScheduleSlot.ListBySemester(ctx, semesterID)
	if err != nil {
		t.logger.Error("加载排课失败", zap.String("semester_id", semesterID), zap.Error(err))
		return err
	}

	assignments := make([]timetable.Assignment, 0, len(links))
	for i := range links {
		assignments = append(assignments, toAssignment(&links[i]))
	}

	records := make([]timetable.SlotRecord, 0, len(rows))
	for i := range rows {
		if err := t.validate.Struct(&rows[i]); err != nil {
			t.logger.Error("排课记录不合法",
				zap.String("schedule_slot_id", rows[i].ScheduleSlotID), zap.Error(err))
			return fmt.Errorf("%w: %s: %v", ErrTimetableLoad, rows[i].ScheduleSlotID, err)
		}
		records = append(records, toSlotRecord(&rows[i]))
	}

	if err := store.Hydrate(assignments, records); err != nil {
		t.logger.Error("构建内存课表失败", zap.String("semester_id", semesterID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrTimetableLoad, err)
	}

	t.logger.Info("学期课表已加载",
		zap.String("semester_id", semesterID),
		zap.Int("assignments", len(assignments)),
		zap.Int("slots", len(records)),
	)
	return nil
}

// ── 模型转换 ──

func toAssignment(ss *model.SectionSubject) timetable.Assignment {
	a := timetable.Assignment{
		ID:        ss.SectionSubjectID,
		SectionID: ss.SectionID,
		SubjectID: ss.SubjectID,
		Semester:  ss.SemesterID,
	}
	if ss.Section != nil {
		a.SectionName = ss.Section.Name
	}
	if ss.Subject != nil {
		a.SubjectCode = ss.Subject.Code
		a.SubjectTitle = ss.Subject.Title
	}
	return a
}

func toSlotRecord(row *model.ScheduleSlot) timetable.SlotRecord {
	return timetable.SlotRecord{
		ID:           row.ScheduleSlotID,
		AssignmentID: row.SectionSubjectID,
		RoomName:     row.RoomName,
		Day:          timetable.Weekday(row.DayOfWeek).String(),
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
	}
}
