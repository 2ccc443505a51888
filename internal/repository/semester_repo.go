package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"campus-registrar/backend/internal/model"
)

// SemesterRepository 学期数据访问接口
type SemesterRepository interface {
	Create(ctx context.Context, semester *model.Semester) error
	GetByID(ctx context.Context, id string) (*model.Semester, error)
	// GetByRef 按学期 ID 或学期代码（如 2025-1）查找
	GetByRef(ctx context.Context, ref string) (*model.Semester, error)
	GetCurrent(ctx context.Context) (*model.Semester, error)
	List(ctx context.Context) ([]model.Semester, error)
	// Activate 将指定学期设为唯一的当前学期，学期不存在返回 gorm.ErrRecordNotFound
	Activate(ctx context.Context, id string, operator *string) error
}

type semesterRepo struct {
	db *gorm.DB
}

// NewSemesterRepo 创建 SemesterRepository 实例
func NewSemesterRepo(db *gorm.DB) SemesterRepository {
	return &semesterRepo{db: db}
}

func (r *semesterRepo) Create(ctx context.Context, semester *model.Semester) error {
	return r.db.WithContext(ctx).Create(semester).Error
}

func (r *semesterRepo) GetByID(ctx context.Context, id string) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("semester_id = ?", id).
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) GetByRef(ctx context.Context, ref string) (*model.Semester, error) {
	// semester_id 为 uuid 列，非 uuid 字符串直接比较会报类型错误
	if _, err := uuid.Parse(ref); err == nil {
		return r.GetByID(ctx, ref)
	}
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("code = ?", ref).
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) GetCurrent(ctx context.Context) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) List(ctx context.Context) ([]model.Semester, error) {
	var semesters []model.Semester
	err := r.db.WithContext(ctx).
		Order("start_date DESC").
		Find(&semesters).Error
	return semesters, err
}

// Activate 两条 UPDATE，调用方应在事务内执行
func (r *semesterRepo) Activate(ctx context.Context, id string, operator *string) error {
	db := r.db.WithContext(ctx).Model(&model.Semester{})

	result := db.Where("semester_id = ?", id).
		Updates(map[string]any{"is_active": true, "updated_by": operator})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return r.db.WithContext(ctx).
		Model(&model.Semester{}).
		Where("is_active = ? AND semester_id <> ?", true, id).
		Update("is_active", false).Error
}
