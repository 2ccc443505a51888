package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-registrar/backend/internal/model"
	"campus-registrar/backend/internal/repository"
	"campus-registrar/backend/internal/timetable"
	pkgerrors "campus-registrar/backend/pkg/errors"
)

// ErrTimetableStale 本地课表落后于数据库，已标记重新加载
var ErrTimetableStale = errors.New("课表已被其他操作修改，请刷新后重试")

// gormAuthority 数据库侧的最终裁决：在学期咨询锁内复核班级与教室重叠后写入。
// 调用方持有 state.mu。
type gormAuthority struct {
	repo     *repository.Repository
	state    *semesterState
	semester string
	operator *string
	logger   *zap.Logger
}

func (a *gormAuthority) CommitPlacement(ctx context.Context, p timetable.Placement) error {
	tx, err := a.repo.BeginTx(ctx)
	if err != nil {
		a.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := a.commitPlacement(ctx, a.repo.WithTx(tx), p); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			a.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}

func (a *gormAuthority) commitPlacement(ctx context.Context, txRepo *repository.Repository, p timetable.Placement) error {
	if err := txRepo.ScheduleSlot.LockSemester(ctx, a.semester); err != nil {
		a.logger.Error("获取学期锁失败", zap.String("semester_id", a.semester), zap.Error(err))
		return err
	}

	if p.AssignmentCreated {
		link := &model.SectionSubject{
			SectionSubjectID: p.Assignment.ID,
			SectionID:        p.Assignment.SectionID,
			SubjectID:        p.Assignment.SubjectID,
			SemesterID:       a.semester,
		}
		link.CreatedBy = a.operator
		link.UpdatedBy = a.operator
		if err := txRepo.SectionSubject.Create(ctx, link); err != nil {
			if pkgerrors.IsUniqueViolation(err) {
				// 其他实例已创建该分配，本地缺失
				a.state.stale = true
				return ErrTimetableStale
			}
			a.logger.Error("创建课程分配失败", zap.Error(err))
			return err
		}
	}

	iv := p.Slot.Interval
	q := repository.OverlapQuery{
		SemesterID: a.semester,
		DayOfWeek:  int(iv.Day()),
		StartTime:  iv.Start().String(),
		EndTime:    iv.End().String(),
		ExcludeID:  p.Slot.ID,
	}

	existing, err := txRepo.ScheduleSlot.FindSectionOverlap(ctx, p.Slot.SectionID, q)
	if err == nil {
		return a.remoteConflict(timetable.ConflictSection, existing)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		a.logger.Error("复核班级冲突失败", zap.Error(err))
		return err
	}

	if p.Slot.HasRoom() {
		existing, err := txRepo.ScheduleSlot.FindRoomOverlap(ctx, p.Slot.Room, q)
		if err == nil {
			return a.remoteConflict(timetable.ConflictRoom, existing)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			a.logger.Error("复核教室冲突失败", zap.Error(err))
			return err
		}
	}

	row := &model.ScheduleSlot{
		ScheduleSlotID:   p.Slot.ID,
		SectionSubjectID: p.Assignment.ID,
		SemesterID:       a.semester,
		DayOfWeek:        int(iv.Day()),
		StartTime:        iv.Start().String(),
		EndTime:          iv.End().String(),
	}
	if p.Slot.HasRoom() {
		room := p.Slot.Room
		row.RoomName = &room
	}
	row.CreatedBy = a.operator
	row.UpdatedBy = a.operator

	if err := txRepo.ScheduleSlot.Create(ctx, row); err != nil {
		a.logger.Error("写入排课失败", zap.String("slot_id", p.Slot.ID), zap.Error(err))
		return err
	}
	return nil
}

// remoteConflict 数据库中存在本地没有的重叠排课：本地课表已过期
func (a *gormAuthority) remoteConflict(kind timetable.ConflictKind, row *model.ScheduleSlot) error {
	a.state.stale = true
	a.logger.Warn("提交时发现远端冲突",
		zap.String("kind", string(kind)),
		zap.String("conflicting_slot", row.ScheduleSlotID),
	)

	existing, err := a.state.store.SlotFromRecord(toSlotRecord(row))
	if err != nil {
		// 分配也不在本地，只能给出时间与教室
		iv, ivErr := timetable.NewInterval(timetable.Weekday(row.DayOfWeek), mustClock(row.StartTime), mustClock(row.EndTime))
		if ivErr == nil {
			existing = timetable.Slot{ID: row.ScheduleSlotID, AssignmentID: row.SectionSubjectID, Interval: iv}
			if row.RoomName != nil {
				existing.Room = *row.RoomName
			}
		}
	}
	return &timetable.ConflictError{Kind: kind, Existing: existing}
}

func (a *gormAuthority) CommitRemoval(ctx context.Context, slot timetable.Slot) error {
	if err := a.repo.ScheduleSlot.Delete(ctx, slot.ID); err != nil {
		a.logger.Error("删除排课失败", zap.String("slot_id", slot.ID), zap.Error(err))
		return err
	}
	return nil
}

func mustClock(s string) timetable.ClockTime {
	c, _ := timetable.ParseClock(s)
	return c
}
