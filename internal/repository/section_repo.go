package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-registrar/backend/internal/model"
)

// SectionFilter 班级列表筛选条件（零值表示不筛选）
type SectionFilter struct {
	SemesterID  string
	ProgramCode string
	YearLevel   int
}

// SectionRepository 班级数据访问接口
type SectionRepository interface {
	Create(ctx context.Context, section *model.Section) error
	CreateBatch(ctx context.Context, sections []model.Section) error
	GetByID(ctx context.Context, id string) (*model.Section, error)
	List(ctx context.Context, filter SectionFilter) ([]model.Section, error)
	ListNames(ctx context.Context, programCode, semesterID string) ([]string, error)
	Delete(ctx context.Context, id string) error
}

type sectionRepo struct {
	db *gorm.DB
}

// NewSectionRepo 创建 SectionRepository 实例
func NewSectionRepo(db *gorm.DB) SectionRepository {
	return &sectionRepo{db: db}
}

func (r *sectionRepo) Create(ctx context.Context, section *model.Section) error {
	return r.db.WithContext(ctx).Create(section).Error
}

// CreateBatch 批量插入；任一名称违反唯一约束时整体失败
func (r *sectionRepo) CreateBatch(ctx context.Context, sections []model.Section) error {
	if len(sections) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&sections).Error
}

func (r *sectionRepo) GetByID(ctx context.Context, id string) (*model.Section, error) {
	var section model.Section
	err := r.db.WithContext(ctx).
		Where("section_id = ?", id).
		First(&section).Error
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (r *sectionRepo) List(ctx context.Context, filter SectionFilter) ([]model.Section, error) {
	var sections []model.Section
	db := r.db.WithContext(ctx)

	if filter.SemesterID != "" {
		db = db.Where("semester_id = ?", filter.SemesterID)
	}
	if filter.ProgramCode != "" {
		db = db.Where("UPPER(program_code) = UPPER(?)", filter.ProgramCode)
	}
	if filter.YearLevel > 0 {
		db = db.Where("year_level = ?", filter.YearLevel)
	}

	err := db.Order("program_code ASC, year_level ASC, name ASC").Find(&sections).Error
	return sections, err
}

// ListNames 某专业在某学期下已有的全部班级名称（序号生成的输入）
func (r *sectionRepo) ListNames(ctx context.Context, programCode, semesterID string) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&model.Section{}).
		Where("UPPER(program_code) = UPPER(?) AND semester_id = ?", programCode, semesterID).
		Pluck("name", &names).Error
	return names, err
}

// Delete 物理删除；section_subjects / schedule_slots 由外键级联删除
func (r *sectionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("section_id = ?", id).
		Delete(&model.Section{}).Error
}
