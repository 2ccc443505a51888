package service

import (
	"time"

	"go.uber.org/zap"

	"campus-registrar/backend/config"
	"campus-registrar/backend/internal/repository"
	"campus-registrar/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Semester  SemesterService
	Room      RoomService
	Subject   SubjectService
	Section   SectionService
	Timetable TimetableService
	Export    ExportService
}

// NewService 创建 Service 聚合
// rdb 为 nil 时批量建班不加分布式锁
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) (*Service, error) {
	grid, err := NewGridConfig(&cfg.Timetable)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.Database.Timezone)
	if err != nil {
		logger.Warn("无法加载时区，导出使用 UTC", zap.String("timezone", cfg.Database.Timezone), zap.Error(err))
		loc = time.UTC
	}

	var locker Locker
	if rdb != nil {
		locker = rdb
	}

	tt := newTimetables(repo, grid, cfg.Timetable.MaxViews, logger)
	return &Service{
		Semester:  NewSemesterService(repo, logger),
		Room:      NewRoomService(repo, tt, logger),
		Subject:   NewSubjectService(repo, logger),
		Section:   NewSectionService(repo, tt, locker, cfg.Timetable.BulkLockTTL, logger),
		Timetable: NewTimetableService(repo, tt, logger),
		Export:    NewExportService(repo, tt, loc, logger),
	}, nil
}
