package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-registrar/backend/internal/model"
)

// SectionSubjectRepository 班级-课程分配数据访问接口
type SectionSubjectRepository interface {
	Create(ctx context.Context, ss *model.SectionSubject) error
	GetBySectionAndSubject(ctx context.Context, sectionID, subjectID string) (*model.SectionSubject, error)
	ListBySemester(ctx context.Context, semesterID string) ([]model.SectionSubject, error)
}

type sectionSubjectRepo struct {
	db *gorm.DB
}

// NewSectionSubjectRepo 创建 SectionSubjectRepository 实例
func NewSectionSubjectRepo(db *gorm.DB) SectionSubjectRepository {
	return &sectionSubjectRepo{db: db}
}

func (r *sectionSubjectRepo) Create(ctx context.Context, ss *model.SectionSubject) error {
	return r.db.WithContext(ctx).Create(ss).Error
}

func (r *sectionSubjectRepo) GetBySectionAndSubject(ctx context.Context, sectionID, subjectID string) (*model.SectionSubject, error) {
	var ss model.SectionSubject
	err := r.db.WithContext(ctx).
		Where("section_id = ? AND subject_id = ?", sectionID, subjectID).
		First(&ss).Error
	if err != nil {
		return nil, err
	}
	return &ss, nil
}

// ListBySemester 加载学期内全部分配，预加载班级与课程（用于构建内存存储）
func (r *sectionSubjectRepo) ListBySemester(ctx context.Context, semesterID string) ([]model.SectionSubject, error) {
	var list []model.SectionSubject
	err := r.db.WithContext(ctx).
		Preload("Section").
		Preload("Subject").
		Where("semester_id = ?", semesterID).
		Order("section_subject_id ASC").
		Find(&list).Error
	return list, err
}
