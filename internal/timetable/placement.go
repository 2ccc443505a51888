package timetable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State 拖放放置状态机
type State int

const (
	StateIdle State = iota
	StateDragging
	StateValidating
	StateCommitting
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateValidating:
		return "validating"
	case StateCommitting:
		return "committing"
	case StateRejected:
		return "rejected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DragPayload 拖动开始时捕获的课程信息
type DragPayload struct {
	SubjectID    string
	SubjectCode  string
	SubjectTitle string
	// SectionID 教室视图下必填；班级视图下由视图决定
	SectionID   string
	SectionName string
	// Room 为空时使用会话默认教室
	Room string
}

// DropEvent 放下事件：目标单元格 (星期, 行)
type DropEvent struct {
	SubjectID string
	Day       Weekday
	Tick      int
	// Ticks 时长（格数），0 表示默认一格
	Ticks int
}

// Placement 一次成功放置的结果
type Placement struct {
	Assignment        Assignment
	AssignmentCreated bool
	Slot              Slot
}

// Record 待持久化的排课记录
func (p Placement) Record() SlotRecord { return p.Slot.Record() }

// Authority 远端权威存储：提交时再次校验，拒绝时返回 *ConflictError
type Authority interface {
	CommitPlacement(ctx context.Context, p Placement) error
	CommitRemoval(ctx context.Context, slot Slot) error
}

// SessionConfig 放置会话配置
type SessionConfig struct {
	Scope       Scope
	Semester    string
	SectionName string // 班级视图下的班级名称
	Room        string // 班级视图下的默认教室，可为空
	Grid        GridConfig
	NewID       func() string
}

// Session 单个网格视图上的放置会话。
// 同一会话内的手势串行执行：上一次放置完成（或被拒绝）之前不接受新的拖动。
type Session struct {
	store     *Store
	detector  *Detector
	authority Authority
	cfg       SessionConfig
	logger    *zap.Logger

	state    State
	payload  DragPayload
	conflict *ConflictReport
}

// NewSession 创建放置会话；authority 为 nil 时仅修改本地存储
func NewSession(store *Store, authority Authority, cfg SessionConfig, logger *zap.Logger) (*Session, error) {
	if err := cfg.Grid.Validate(); err != nil {
		return nil, err
	}
	if cfg.Scope.Key == "" || (cfg.Scope.Kind != ScopeSection && cfg.Scope.Kind != ScopeRoom) {
		return nil, fmt.Errorf("无效的会话范围 %q", cfg.Scope)
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		store:     store,
		detector:  NewDetector(store),
		authority: authority,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// State 当前状态
func (s *Session) State() State { return s.state }

// Conflict 最近一次被拒绝的冲突报告
func (s *Session) Conflict() *ConflictReport { return s.conflict }

// BeginDrag Idle/Rejected → Dragging
func (s *Session) BeginDrag(p DragPayload) error {
	if s.state != StateIdle && s.state != StateRejected {
		return fmt.Errorf("%w: %s 状态下不能开始拖动", ErrInvalidTransition, s.state)
	}
	if p.SubjectID == "" {
		return fmt.Errorf("拖动内容缺少课程")
	}
	s.payload = p
	s.conflict = nil
	s.state = StateDragging
	return nil
}

// CancelDrag 放弃当前拖动
func (s *Session) CancelDrag() {
	if s.state == StateDragging {
		s.state = StateIdle
		s.payload = DragPayload{}
	}
}

// Drop Dragging → Validating → Committing → Idle，或 → Rejected。
// 冲突时不修改存储，返回 *ConflictError；远端拒绝时回滚本地存储。
func (s *Session) Drop(ctx context.Context, ev DropEvent) (*Placement, error) {
	if s.state != StateDragging {
		return nil, fmt.Errorf("%w: %s 状态下不能放下", ErrInvalidTransition, s.state)
	}
	if ev.SubjectID != "" && ev.SubjectID != s.payload.SubjectID {
		s.state = StateIdle
		return nil, fmt.Errorf("放下的课程 %s 与拖动的课程 %s 不一致", ev.SubjectID, s.payload.SubjectID)
	}
	s.state = StateValidating

	candidate, assignment, created, err := s.buildCandidate(ev)
	if err != nil {
		s.state = StateIdle
		return nil, err
	}

	if res := s.detector.Check(candidate); !res.Clear() {
		s.reject(res.Kind, res.Existing)
		return nil, res.Err()
	}

	s.state = StateCommitting
	placement, err := s.commit(ctx, candidate, assignment, created)
	if err != nil {
		var ce *ConflictError
		if errors.As(err, &ce) {
			s.reject(ce.Kind, ce.Existing)
			return nil, err
		}
		s.state = StateIdle
		return nil, err
	}

	s.state = StateIdle
	s.payload = DragPayload{}
	return placement, nil
}

func (s *Session) reject(kind ConflictKind, existing Slot) {
	s.conflict = NewConflictReport(kind, existing)
	s.state = StateRejected
	s.logger.Info("排课放置被拒绝",
		zap.String("scope", s.cfg.Scope.String()),
		zap.String("kind", string(kind)),
		zap.String("conflicting_slot", existing.ID),
	)
}

// buildCandidate 解析放置目标、复用或新建分配、构造一格时长的候选排课
func (s *Session) buildCandidate(ev DropEvent) (Slot, Assignment, bool, error) {
	at, err := DropTarget(s.store, s.cfg.Scope, s.cfg.Grid, ev.Day, ev.Tick)
	if err != nil {
		return Slot{}, Assignment{}, false, err
	}

	sectionID, sectionName, room := s.cfg.Scope.Key, s.cfg.SectionName, s.cfg.Room
	if s.cfg.Scope.Kind == ScopeRoom {
		sectionID, sectionName, room = s.payload.SectionID, s.payload.SectionName, s.cfg.Scope.Key
		if sectionID == "" {
			return Slot{}, Assignment{}, false, ErrMissingSection
		}
	} else if s.payload.Room != "" {
		room = s.payload.Room
	}

	assignment, found := s.store.AssignmentFor(sectionID, s.payload.SubjectID)
	if !found {
		assignment = Assignment{
			ID:           s.cfg.NewID(),
			SectionID:    sectionID,
			SectionName:  sectionName,
			SubjectID:    s.payload.SubjectID,
			SubjectCode:  s.payload.SubjectCode,
			SubjectTitle: s.payload.SubjectTitle,
			Semester:     s.cfg.Semester,
		}
	}

	ticks := max(ev.Ticks, 1)
	iv, err := NewInterval(at.Day, at.Clock, at.Clock.Add(time.Duration(ticks)*s.cfg.Grid.Tick))
	if err != nil {
		return Slot{}, Assignment{}, false, err
	}
	candidate := Slot{ID: s.cfg.NewID(), Room: room, Interval: iv}.withAssignment(assignment)
	return candidate, assignment, !found, nil
}

// commit 先写本地存储（触发所有视图刷新），再提交远端；远端失败则回滚
func (s *Session) commit(ctx context.Context, slot Slot, a Assignment, created bool) (*Placement, error) {
	if created {
		if err := s.store.AddAssignment(a); err != nil {
			s.logger.Error("新建课程分配失败", zap.String("section_id", a.SectionID),
				zap.String("subject_id", a.SubjectID), zap.Error(err))
			return nil, err
		}
	}
	if err := s.store.Add(slot); err != nil {
		if created {
			s.store.RemoveAssignment(a.ID)
		}
		return nil, err
	}

	p := Placement{Assignment: a, AssignmentCreated: created, Slot: slot}
	if s.authority == nil {
		return &p, nil
	}
	if err := s.authority.CommitPlacement(ctx, p); err != nil {
		s.store.Remove(slot.ID)
		if created {
			s.store.RemoveAssignment(a.ID)
		}
		s.logger.Warn("远端提交排课失败，已回滚", zap.String("slot_id", slot.ID), zap.Error(err))
		return nil, err
	}
	return &p, nil
}

// Remove 删除排课：不存在时为空操作；远端失败时恢复该排课。分配保留。
func (s *Session) Remove(ctx context.Context, slotID string) error {
	if s.state != StateIdle && s.state != StateRejected {
		return fmt.Errorf("%w: %s 状态下不能删除", ErrInvalidTransition, s.state)
	}
	s.state = StateIdle
	s.conflict = nil

	slot, ok := s.store.Remove(slotID)
	if !ok {
		return nil
	}
	if s.authority == nil {
		return nil
	}
	if err := s.authority.CommitRemoval(ctx, slot); err != nil {
		if restoreErr := s.store.Add(slot); restoreErr != nil {
			s.logger.Error("恢复排课失败", zap.String("slot_id", slot.ID), zap.Error(restoreErr))
		}
		return err
	}
	return nil
}
