package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Semester       SemesterRepository
	Room           RoomRepository
	Subject        SubjectRepository
	Section        SectionRepository
	SectionSubject SectionSubjectRepository
	ScheduleSlot   ScheduleSlotRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:             db,
		Semester:       NewSemesterRepo(db),
		Room:           NewRoomRepo(db),
		Subject:        NewSubjectRepo(db),
		Section:        NewSectionRepo(db),
		SectionSubject: NewSectionSubjectRepo(db),
		ScheduleSlot:   NewScheduleSlotRepo(db),
	}
}

// BeginTx 开启事务
// 单元测试中 Repository 由 mock 组装、db 为空，此时返回 (nil, nil)，调用方需判空
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository 副本
// tx 为空时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
