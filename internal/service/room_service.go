package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/model"
	"campus-registrar/backend/internal/repository"
	pkgerrors "campus-registrar/backend/pkg/errors"
)

// ── 教室模块业务错误 ──

var (
	ErrRoomNotFound  = errors.New("教室不存在")
	ErrRoomArchived  = errors.New("教室已归档")
	ErrRoomNameTaken = errors.New("教室名称已存在")
	ErrRoomInUse     = errors.New("教室已有排课，不能改名")
)

// RoomService 教室业务接口
type RoomService interface {
	Create(ctx context.Context, req *dto.CreateRoomRequest, operator string) (*dto.RoomResponse, error)
	GetByID(ctx context.Context, id string) (*dto.RoomResponse, error)
	List(ctx context.Context, req *dto.RoomListRequest) ([]dto.RoomResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateRoomRequest, operator string) (*dto.RoomResponse, error)
	Archive(ctx context.Context, id string, operator string) (*dto.ArchiveRoomResponse, error)
}

type roomService struct {
	repo       *repository.Repository
	timetables *timetables
	logger     *zap.Logger
}

// NewRoomService 创建 RoomService 实例
func NewRoomService(repo *repository.Repository, tt *timetables, logger *zap.Logger) RoomService {
	return &roomService{repo: repo, timetables: tt, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *roomService) Create(ctx context.Context, req *dto.CreateRoomRequest, operator string) (*dto.RoomResponse, error) {
	room := &model.Room{
		Name:     req.Name,
		Capacity: req.Capacity,
		RoomType: req.RoomType,
		IsActive: true,
	}
	if room.RoomType == "" {
		room.RoomType = model.RoomTypeLecture
	}
	room.CreatedBy = operatorPtr(operator)
	room.UpdatedBy = operatorPtr(operator)

	if err := s.repo.Room.Create(ctx, room); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrRoomNameTaken
		}
		s.logger.Error("创建教室失败", zap.Error(err))
		return nil, err
	}

	return s.toRoomResponse(room), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *roomService) GetByID(ctx context.Context, id string) (*dto.RoomResponse, error) {
	room, err := s.getRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toRoomResponse(room), nil
}

// ────────────────────── List ──────────────────────

func (s *roomService) List(ctx context.Context, req *dto.RoomListRequest) ([]dto.RoomResponse, error) {
	rooms, err := s.repo.Room.List(ctx, req.IncludeInactive)
	if err != nil {
		s.logger.Error("列出教室失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.RoomResponse, 0, len(rooms))
	for i := range rooms {
		result = append(result, *s.toRoomResponse(&rooms[i]))
	}

	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *roomService) Update(ctx context.Context, id string, req *dto.UpdateRoomRequest, operator string) (*dto.RoomResponse, error) {
	room, err := s.getRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, ErrRoomArchived
	}
	if room.Version != req.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	// 排课按名称引用教室，有排课时不允许改名
	if req.Name != nil && *req.Name != room.Name {
		count, err := s.repo.ScheduleSlot.CountByRoom(ctx, room.Name)
		if err != nil {
			s.logger.Error("统计教室排课失败", zap.String("room", room.Name), zap.Error(err))
			return nil, err
		}
		if count > 0 {
			return nil, ErrRoomInUse
		}
		room.Name = *req.Name
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.RoomType != nil {
		room.RoomType = *req.RoomType
	}
	room.UpdatedBy = operatorPtr(operator)

	if err := s.repo.Room.Update(ctx, room); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrRoomNameTaken
		}
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("更新教室失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toRoomResponse(room), nil
}

// ═══════════════════════════════════════════════════════════
// Archive 归档教室并移除其全部排课（数据库 + 内存课表）
// ═══════════════════════════════════════════════════════════

func (s *roomService) Archive(ctx context.Context, id string, operator string) (*dto.ArchiveRoomResponse, error) {
	room, err := s.getRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return &dto.ArchiveRoomResponse{Room: *s.toRoomResponse(room)}, nil
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	room.IsActive = false
	room.UpdatedBy = operatorPtr(operator)
	if err := txRepo.Room.Update(ctx, room); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("归档教室失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	removed, err := txRepo.ScheduleSlot.DeleteByRoom(ctx, room.Name)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("删除教室排课失败", zap.String("room", room.Name), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.timetables.removeRoom(room.Name)
	s.logger.Info("教室已归档", zap.String("room", room.Name), zap.Int64("removed_slots", removed))

	return &dto.ArchiveRoomResponse{Room: *s.toRoomResponse(room), RemovedSlots: removed}, nil
}

// ── 内部辅助方法 ──

func (s *roomService) getRoom(ctx context.Context, id string) (*model.Room, error) {
	room, err := s.repo.Room.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询教室失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return room, nil
}

func (s *roomService) toRoomResponse(room *model.Room) *dto.RoomResponse {
	return &dto.RoomResponse{
		ID:        room.RoomID,
		Name:      room.Name,
		Capacity:  room.Capacity,
		RoomType:  room.RoomType,
		IsActive:  room.IsActive,
		Version:   room.Version,
		CreatedAt: room.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: room.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
