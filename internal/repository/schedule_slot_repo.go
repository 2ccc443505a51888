package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-registrar/backend/internal/model"
)

// OverlapQuery 提交时的重叠复核条件
// 区间为左闭右开，[Start, End) 与已有记录有交集即视为重叠
type OverlapQuery struct {
	SemesterID string
	DayOfWeek  int
	StartTime  string
	EndTime    string
	ExcludeID  string
}

// ScheduleSlotRepository 排课数据访问接口
type ScheduleSlotRepository interface {
	Create(ctx context.Context, slot *model.ScheduleSlot) error
	GetByID(ctx context.Context, id string) (*model.ScheduleSlot, error)
	ListBySemester(ctx context.Context, semesterID string) ([]model.ScheduleSlot, error)
	FindSectionOverlap(ctx context.Context, sectionID string, q OverlapQuery) (*model.ScheduleSlot, error)
	FindRoomOverlap(ctx context.Context, roomName string, q OverlapQuery) (*model.ScheduleSlot, error)
	Delete(ctx context.Context, id string) error
	DeleteByRoom(ctx context.Context, roomName string) (int64, error)
	CountByRoom(ctx context.Context, roomName string) (int64, error)
	LockSemester(ctx context.Context, semesterID string) error
}

type scheduleSlotRepo struct {
	db *gorm.DB
}

// NewScheduleSlotRepo 创建 ScheduleSlotRepository 实例
func NewScheduleSlotRepo(db *gorm.DB) ScheduleSlotRepository {
	return &scheduleSlotRepo{db: db}
}

func (r *scheduleSlotRepo) Create(ctx context.Context, slot *model.ScheduleSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *scheduleSlotRepo) GetByID(ctx context.Context, id string) (*model.ScheduleSlot, error) {
	var slot model.ScheduleSlot
	err := r.db.WithContext(ctx).
		Where("schedule_slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *scheduleSlotRepo) ListBySemester(ctx context.Context, semesterID string) ([]model.ScheduleSlot, error) {
	var slots []model.ScheduleSlot
	err := r.db.WithContext(ctx).
		Where("semester_id = ?", semesterID).
		Order("day_of_week ASC, start_time ASC, schedule_slot_id ASC").
		Find(&slots).Error
	return slots, err
}

// FindSectionOverlap 查找同一班级内与给定区间重叠的排课，无重叠返回 gorm.ErrRecordNotFound
func (r *scheduleSlotRepo) FindSectionOverlap(ctx context.Context, sectionID string, q OverlapQuery) (*model.ScheduleSlot, error) {
	var slot model.ScheduleSlot
	err := r.overlapping(ctx, q).
		Joins("JOIN section_subjects ss ON ss.section_subject_id = schedule_slots.section_subject_id").
		Where("ss.section_id = ?", sectionID).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindRoomOverlap 查找同一教室内与给定区间重叠的排课，无重叠返回 gorm.ErrRecordNotFound
func (r *scheduleSlotRepo) FindRoomOverlap(ctx context.Context, roomName string, q OverlapQuery) (*model.ScheduleSlot, error) {
	var slot model.ScheduleSlot
	err := r.overlapping(ctx, q).
		Where("schedule_slots.room_name = ?", roomName).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *scheduleSlotRepo) overlapping(ctx context.Context, q OverlapQuery) *gorm.DB {
	db := r.db.WithContext(ctx).
		Model(&model.ScheduleSlot{}).
		Where("schedule_slots.semester_id = ? AND schedule_slots.day_of_week = ?", q.SemesterID, q.DayOfWeek).
		Where("schedule_slots.start_time < ? AND schedule_slots.end_time > ?", q.EndTime, q.StartTime)
	if q.ExcludeID != "" {
		db = db.Where("schedule_slots.schedule_slot_id <> ?", q.ExcludeID)
	}
	return db.Order("schedule_slots.start_time ASC")
}

func (r *scheduleSlotRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("schedule_slot_id = ?", id).
		Delete(&model.ScheduleSlot{}).Error
}

// DeleteByRoom 教室归档时移除其全部排课，返回删除条数
func (r *scheduleSlotRepo) DeleteByRoom(ctx context.Context, roomName string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("room_name = ?", roomName).
		Delete(&model.ScheduleSlot{})
	return result.RowsAffected, result.Error
}

func (r *scheduleSlotRepo) CountByRoom(ctx context.Context, roomName string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ScheduleSlot{}).
		Where("room_name = ?", roomName).
		Count(&count).Error
	return count, err
}

// LockSemester 事务级咨询锁：同一学期的提交复核串行执行，事务结束自动释放
// 必须在事务连接上调用
func (r *scheduleSlotRepo) LockSemester(ctx context.Context, semesterID string) error {
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "schedule_slots:"+semesterID).Error
}
