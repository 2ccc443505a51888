package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-registrar/backend/internal/model"
	pkgerrors "campus-registrar/backend/pkg/errors"
)

// RoomRepository 教室数据访问接口
type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	GetByName(ctx context.Context, name string) (*model.Room, error)
	List(ctx context.Context, includeInactive bool) ([]model.Room, error)
	Update(ctx context.Context, room *model.Room) error
}

type roomRepo struct {
	db *gorm.DB
}

// NewRoomRepo 创建 RoomRepository 实例
func NewRoomRepo(db *gorm.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Where("room_id = ?", id).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) GetByName(ctx context.Context, name string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) List(ctx context.Context, includeInactive bool) ([]model.Room, error) {
	var rooms []model.Room
	db := r.db.WithContext(ctx)

	if !includeInactive {
		db = db.Where("is_active = ?", true)
	}

	err := db.Order("name ASC").Find(&rooms).Error
	return rooms, err
}

// Update 带乐观锁更新：version 不匹配时返回 ErrOptimisticLock
func (r *roomRepo) Update(ctx context.Context, room *model.Room) error {
	oldVersion := room.Version
	result := r.db.WithContext(ctx).
		Model(room).
		Where("room_id = ? AND version = ?", room.RoomID, oldVersion).
		Updates(map[string]interface{}{
			"name":       room.Name,
			"capacity":   room.Capacity,
			"room_type":  room.RoomType,
			"is_active":  room.IsActive,
			"updated_by": room.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	room.Version = oldVersion + 1
	return nil
}
