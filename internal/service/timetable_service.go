package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/model"
	"campus-registrar/backend/internal/repository"
	"campus-registrar/backend/internal/timetable"
)

// ── 课表模块业务错误 ──

var (
	ErrSectionSemesterMismatch = errors.New("班级不属于该学期")
	ErrPlacementInvalidDay     = errors.New("无效的星期")
	ErrPlacementOutOfWindow    = errors.New("放置位置超出课表时间范围")
	ErrPlacementNeedsRoom      = errors.New("教室视图下必须指定教室")
	ErrRoomSemesterRequired    = errors.New("教室课表需要指定学期")
)

// gridNotice 视图投影失败时给用户的统一提示
const gridNotice = "课表无法正确显示，请联系教务管理员"

// TimetableService 课表业务接口：网格投影、放置、删除、审计
type TimetableService interface {
	SectionGrid(ctx context.Context, sectionID string) (*dto.GridResponse, error)
	RoomGrid(ctx context.Context, semesterID, room string) (*dto.GridResponse, error)
	Assignments(ctx context.Context, sectionID string) ([]dto.AssignmentResponse, error)
	Place(ctx context.Context, req *dto.PlacementRequest, operator string) (*dto.PlacementResponse, error)
	RemoveSlot(ctx context.Context, semesterID, slotID, operator string) error
	Audit(ctx context.Context, semesterID string) (*dto.AuditResponse, error)
}

type timetableService struct {
	repo       *repository.Repository
	timetables *timetables
	logger     *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(repo *repository.Repository, tt *timetables, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, timetables: tt, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// 网格视图
// ═══════════════════════════════════════════════════════════

func (s *timetableService) SectionGrid(ctx context.Context, sectionID string) (*dto.GridResponse, error) {
	section, err := s.getSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	st, err := s.timetables.load(ctx, section.SemesterID)
	if err != nil {
		return nil, err
	}
	return s.project(st, timetable.SectionScope(section.SectionID))
}

func (s *timetableService) RoomGrid(ctx context.Context, semesterID, room string) (*dto.GridResponse, error) {
	if semesterID == "" {
		return nil, ErrRoomSemesterRequired
	}
	if _, err := s.getSemester(ctx, semesterID); err != nil {
		return nil, err
	}
	if _, err := s.getRoom(ctx, room); err != nil {
		return nil, err
	}
	st, err := s.timetables.load(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	return s.project(st, timetable.RoomScope(room))
}

// project 通过看板打开视图；投影失败时返回降级响应而不是错误
func (s *timetableService) project(st *semesterState, scope timetable.Scope) (*dto.GridResponse, error) {
	grid, err := st.board.Open(scope)
	if err != nil {
		if !errors.Is(err, timetable.ErrIntegrityViolation) {
			s.logger.Error("课表投影失败", zap.String("scope", scope.String()), zap.Error(err))
		}
		return &dto.GridResponse{
			Scope:    string(scope.Kind),
			Key:      scope.Key,
			Version:  st.store.Version(),
			Degraded: true,
			Notice:   gridNotice,
		}, nil
	}
	return toGridResponse(grid), nil
}

// ────────────────────── Assignments ──────────────────────

func (s *timetableService) Assignments(ctx context.Context, sectionID string) ([]dto.AssignmentResponse, error) {
	section, err := s.getSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	st, err := s.timetables.load(ctx, section.SemesterID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, slot := range st.store.SlotsForSection(section.SectionID) {
		counts[slot.AssignmentID]++
	}

	assignments := st.store.AssignmentsForSection(section.SectionID)
	result := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		result = append(result, dto.AssignmentResponse{
			ID:           a.ID,
			SectionID:    a.SectionID,
			SubjectID:    a.SubjectID,
			SubjectCode:  a.SubjectCode,
			SubjectTitle: a.SubjectTitle,
			SlotCount:    counts[a.ID],
		})
	}
	return result, nil
}

// ═══════════════════════════════════════════════════════════
// Place 一次拖放：校验 → 本地提交 → 数据库复核
// ═══════════════════════════════════════════════════════════

func (s *timetableService) Place(ctx context.Context, req *dto.PlacementRequest, operator string) (*dto.PlacementResponse, error) {
	day, err := timetable.ParseWeekday(req.Day)
	if err != nil {
		return nil, ErrPlacementInvalidDay
	}
	ticks := max(req.Ticks, 1)
	if req.Tick == nil || *req.Tick < 0 || *req.Tick+ticks > s.timetables.grid.TickCount() {
		return nil, ErrPlacementOutOfWindow
	}

	section, err := s.getSection(ctx, req.SectionID)
	if err != nil {
		return nil, err
	}
	if section.SemesterID != req.SemesterID {
		return nil, ErrSectionSemesterMismatch
	}

	subject, err := s.repo.Subject.GetByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", req.SubjectID), zap.Error(err))
		return nil, err
	}

	roomName := strings.TrimSpace(req.RoomName)
	if roomName != "" {
		if err := s.checkRoom(ctx, roomName); err != nil {
			return nil, err
		}
	}

	scope := timetable.SectionScope(section.SectionID)
	if req.View == string(timetable.ScopeRoom) {
		if roomName == "" {
			return nil, ErrPlacementNeedsRoom
		}
		scope = timetable.RoomScope(roomName)
	}

	st, release, err := s.timetables.acquire(ctx, req.SemesterID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := timetable.NewSession(st.store, &gormAuthority{
		repo:     s.repo,
		state:    st,
		semester: req.SemesterID,
		operator: operatorPtr(operator),
		logger:   s.logger,
	}, timetable.SessionConfig{
		Scope:       scope,
		Semester:    req.SemesterID,
		SectionName: section.Name,
		Grid:        s.timetables.grid,
		NewID:       uuid.NewString,
	}, s.logger)
	if err != nil {
		return nil, err
	}

	if err := session.BeginDrag(timetable.DragPayload{
		SubjectID:    subject.SubjectID,
		SubjectCode:  subject.Code,
		SubjectTitle: subject.Title,
		SectionID:    section.SectionID,
		SectionName:  section.Name,
		Room:         roomName,
	}); err != nil {
		return nil, err
	}

	placement, err := session.Drop(ctx, timetable.DropEvent{
		SubjectID: subject.SubjectID,
		Day:       day,
		Tick:      *req.Tick,
		Ticks:     ticks,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("排课放置成功",
		zap.String("slot_id", placement.Slot.ID),
		zap.String("section", section.Name),
		zap.String("subject", subject.Code),
		zap.String("interval", placement.Slot.Interval.String()),
		zap.String("room", placement.Slot.Room),
	)
	return &dto.PlacementResponse{
		Slot:              placement.Record(),
		AssignmentCreated: placement.AssignmentCreated,
	}, nil
}

// ────────────────────── RemoveSlot ──────────────────────

func (s *timetableService) RemoveSlot(ctx context.Context, semesterID, slotID, operator string) error {
	st, release, err := s.timetables.acquire(ctx, semesterID)
	if err != nil {
		return err
	}
	defer release()

	slot, ok := st.store.Slot(slotID)
	if !ok {
		return s.removeRemoteSlot(ctx, st, semesterID, slotID)
	}

	session, err := timetable.NewSession(st.store, &gormAuthority{
		repo:     s.repo,
		state:    st,
		semester: semesterID,
		operator: operatorPtr(operator),
		logger:   s.logger,
	}, timetable.SessionConfig{
		Scope:    timetable.SectionScope(slot.SectionID),
		Semester: semesterID,
		Grid:     s.timetables.grid,
	}, s.logger)
	if err != nil {
		return err
	}
	if err := session.Remove(ctx, slotID); err != nil {
		return err
	}

	s.logger.Info("排课已删除", zap.String("slot_id", slotID), zap.String("interval", slot.Interval.String()))
	return nil
}

// removeRemoteSlot 本地课表没有该排课：可能由其他实例写入，按数据库删除并标记本地过期。
// 调用方持有 st.mu。
func (s *timetableService) removeRemoteSlot(ctx context.Context, st *semesterState, semesterID, slotID string) error {
	row, err := s.repo.ScheduleSlot.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		s.logger.Error("查询排课失败", zap.String("slot_id", slotID), zap.Error(err))
		return err
	}
	if row.SemesterID != semesterID {
		return nil
	}

	if err := s.repo.ScheduleSlot.Delete(ctx, slotID); err != nil {
		s.logger.Error("删除排课失败", zap.String("slot_id", slotID), zap.Error(err))
		return err
	}
	st.stale = true
	s.logger.Warn("删除了本地课表中缺失的排课，课表将重新加载",
		zap.String("slot_id", slotID), zap.String("semester_id", semesterID))
	return nil
}

// ────────────────────── Audit ──────────────────────

func (s *timetableService) Audit(ctx context.Context, semesterID string) (*dto.AuditResponse, error) {
	if _, err := s.getSemester(ctx, semesterID); err != nil {
		return nil, err
	}
	st, err := s.timetables.load(ctx, semesterID)
	if err != nil {
		return nil, err
	}

	collisions := timetable.NewDetector(st.store).Audit()
	result := &dto.AuditResponse{
		SemesterID: semesterID,
		Slots:      len(st.store.Slots()),
		Collisions: make([]dto.CollisionResponse, 0, len(collisions)),
	}
	for _, c := range collisions {
		result.Collisions = append(result.Collisions, dto.CollisionResponse{
			Kind:  string(c.Kind),
			Key:   c.Key,
			First: toSlotDetail(c.First),
			Other: toSlotDetail(c.Other),
		})
	}
	if len(collisions) > 0 {
		s.logger.Error("课表审计发现重叠", zap.String("semester_id", semesterID), zap.Int("collisions", len(collisions)))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *timetableService) getSection(ctx context.Context, id string) (*model.Section, error) {
	section, err := s.repo.Section.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSectionNotFound
		}
		s.logger.Error("查询班级失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return section, nil
}

func (s *timetableService) getSemester(ctx context.Context, id string) (*model.Semester, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return semester, nil
}

func (s *timetableService) getRoom(ctx context.Context, name string) (*model.Room, error) {
	room, err := s.repo.Room.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询教室失败", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return room, nil
}

// checkRoom 放置目标教室必须存在且未归档
func (s *timetableService) checkRoom(ctx context.Context, name string) error {
	room, err := s.getRoom(ctx, name)
	if err != nil {
		return err
	}
	if !room.IsActive {
		return ErrRoomArchived
	}
	return nil
}

func operatorPtr(operator string) *string {
	if operator == "" {
		return nil
	}
	return &operator
}

func toSlotDetail(slot timetable.Slot) dto.SlotDetail {
	return dto.SlotDetail{
		SlotRecord:  slot.Record(),
		SectionID:   slot.SectionID,
		SectionName: slot.SectionName,
		SubjectID:   slot.SubjectID,
		SubjectCode: slot.SubjectCode,
		Subject:     slot.SubjectTitle,
	}
}

func toGridResponse(g *timetable.Grid) *dto.GridResponse {
	resp := &dto.GridResponse{
		Scope:   string(g.Scope.Kind),
		Key:     g.Scope.Key,
		Version: g.Version,
		Days:    make([]string, 0, len(g.Days())),
	}
	for _, d := range g.Days() {
		resp.Days = append(resp.Days, d.String())
	}

	for tick, row := range g.Rows() {
		tr := dto.TickRow{
			Tick:  tick,
			Start: g.Config.TickStart(tick).String(),
			Cells: make([]dto.GridCell, 0, len(row)),
		}
		for _, c := range row {
			cell := dto.GridCell{Day: c.Day.String(), State: c.State.String()}
			switch c.State {
			case timetable.CellAnchor:
				cell.Span = c.Span
				if c.Slot != nil {
					detail := toSlotDetail(*c.Slot)
					cell.Slot = &detail
				}
			case timetable.CellSuppressed:
				anchor := c.AnchorTick
				cell.AnchorTick = &anchor
			}
			tr.Cells = append(tr.Cells, cell)
		}
		resp.Ticks = append(resp.Ticks, tr)
	}

	for _, slot := range g.Hidden {
		resp.Hidden = append(resp.Hidden, toSlotDetail(slot))
	}
	for _, slot := range g.Crowded {
		resp.Crowded = append(resp.Crowded, toSlotDetail(slot))
	}
	return resp
}

// describeSlot 日志与导出使用的单行描述
func describeSlot(slot timetable.Slot) string {
	text := fmt.Sprintf("%s (%s)", slot.SubjectCode, slot.SectionName)
	if slot.HasRoom() {
		text += " @ " + slot.Room
	}
	return text
}
