package timetable

import (
	"errors"
	"fmt"
)

// ── 排课核心错误 ──

var (
	ErrInvalidInterval     = errors.New("无效的时间区间")
	ErrSectionConflict     = errors.New("班级时间冲突")
	ErrRoomConflict        = errors.New("教室时间冲突")
	ErrDuplicateAssignment = errors.New("该班级已分配此课程")
	ErrIntegrityViolation  = errors.New("课表数据不一致")
	ErrInvalidGridConfig   = errors.New("无效的课表网格配置")
	ErrUnknownAssignment   = errors.New("课程分配不存在")
	ErrDuplicateSlot       = errors.New("排课记录已存在")
	ErrInvalidTransition   = errors.New("当前状态不允许该操作")
	ErrCellNotDroppable    = errors.New("该单元格不可放置")
	ErrMissingSection      = errors.New("未指定班级")
)

// ConflictError 放置冲突，携带与之冲突的已有排课
type ConflictError struct {
	Kind     ConflictKind
	Existing Slot
}

func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	what := "班级"
	if e.Kind == ConflictRoom {
		what = "教室 " + e.Existing.Room
	}
	return fmt.Sprintf("%s时间冲突: 与 %s (%s) %s 重叠",
		what, e.Existing.SubjectCode, e.Existing.SectionName, e.Existing.Interval)
}

// Is 支持 errors.Is(err, ErrSectionConflict / ErrRoomConflict)
func (e *ConflictError) Is(target error) bool {
	switch target {
	case ErrSectionConflict:
		return e.Kind == ConflictSection
	case ErrRoomConflict:
		return e.Kind == ConflictRoom
	}
	return false
}

// IntegrityError 网格投影发现锚点/覆盖区重叠，说明上游漏做了冲突校验
type IntegrityError struct {
	Day    Weekday
	Tick   int
	Slot   Slot
	Others Slot
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("课表数据不一致: %s 第%d格 %s 与 %s 重叠",
		e.Day, e.Tick, e.Slot.ID, e.Others.ID)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrityViolation }
