package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/model"
	"campus-registrar/backend/internal/repository"
	"campus-registrar/backend/internal/sequence"
	pkgerrors "campus-registrar/backend/pkg/errors"
	"campus-registrar/backend/pkg/redis"
)

// ── 班级模块业务错误 ──

var (
	ErrSectionNotFound  = errors.New("班级不存在")
	ErrSectionNameTaken = errors.New("班级名称已存在，请刷新后重试")
	ErrSectionBusy      = errors.New("该专业年级正在批量创建班级，请稍后重试")
)

// Locker 批量建班的互斥锁
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (*redis.Lock, error)
}

// SectionService 班级业务接口
type SectionService interface {
	Create(ctx context.Context, req *dto.CreateSectionRequest, operator string) (*dto.SectionResponse, error)
	List(ctx context.Context, req *dto.SectionListRequest) ([]dto.SectionResponse, error)
	PreviewNext(ctx context.Context, req *dto.NextSectionNameRequest) (*dto.NextSectionNameResponse, error)
	BulkCreate(ctx context.Context, req *dto.BulkCreateSectionsRequest, operator string) (*dto.BulkCreateSectionsResponse, error)
	Delete(ctx context.Context, id string) error
}

type sectionService struct {
	repo       *repository.Repository
	timetables *timetables
	locker     Locker
	lockTTL    time.Duration
	logger     *zap.Logger
}

// NewSectionService 创建 SectionService 实例；locker 为 nil 时不加锁，由唯一约束兜底
func NewSectionService(repo *repository.Repository, tt *timetables, locker Locker, lockTTL time.Duration, logger *zap.Logger) SectionService {
	return &sectionService{repo: repo, timetables: tt, locker: locker, lockTTL: lockTTL, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *sectionService) Create(ctx context.Context, req *dto.CreateSectionRequest, operator string) (*dto.SectionResponse, error) {
	if err := s.checkSemester(ctx, req.SemesterID); err != nil {
		return nil, err
	}

	section := s.newSection(strings.ToUpper(strings.TrimSpace(req.Name)), req.ProgramCode, req.YearLevel, req.SemesterID, req.Capacity, operator)
	if err := s.repo.Section.Create(ctx, section); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrSectionNameTaken
		}
		s.logger.Error("创建班级失败", zap.Error(err))
		return nil, err
	}
	return toSectionResponse(section), nil
}

// ────────────────────── List ──────────────────────

func (s *sectionService) List(ctx context.Context, req *dto.SectionListRequest) ([]dto.SectionResponse, error) {
	sections, err := s.repo.Section.List(ctx, repository.SectionFilter{
		SemesterID:  req.SemesterID,
		ProgramCode: req.ProgramCode,
		YearLevel:   req.YearLevel,
	})
	if err != nil {
		s.logger.Error("列出班级失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SectionResponse, 0, len(sections))
	for i := range sections {
		result = append(result, *toSectionResponse(&sections[i]))
	}
	return result, nil
}

// ────────────────────── PreviewNext ──────────────────────

func (s *sectionService) PreviewNext(ctx context.Context, req *dto.NextSectionNameRequest) (*dto.NextSectionNameResponse, error) {
	names, err := s.repo.Section.ListNames(ctx, req.ProgramCode, req.SemesterID)
	if err != nil {
		s.logger.Error("查询已有班级名称失败", zap.Error(err))
		return nil, err
	}

	next := sequence.Preview(req.ProgramCode, req.YearLevel, names)
	resp := &dto.NextSectionNameResponse{Next: next}
	if next > 0 {
		resp.Name = sequence.Format(req.ProgramCode, req.YearLevel, next)
	}
	return resp, nil
}

// ═══════════════════════════════════════════════════════════
// BulkCreate 按 PROGRAM+年级 连续生成 count 个班级
// ═══════════════════════════════════════════════════════════
//
// 同一 (专业, 年级, 学期) 范围内由 Redis 锁串行化；
// Redis 不可用时直接执行，并发产生的重名由数据库唯一约束拒绝。

func (s *sectionService) BulkCreate(ctx context.Context, req *dto.BulkCreateSectionsRequest, operator string) (*dto.BulkCreateSectionsResponse, error) {
	if err := s.checkSemester(ctx, req.SemesterID); err != nil {
		return nil, err
	}

	scope := fmt.Sprintf("sections:%s:%d:%s", strings.ToUpper(req.ProgramCode), req.YearLevel, req.SemesterID)
	if s.locker != nil {
		lock, err := s.locker.AcquireLock(ctx, scope, s.lockTTL)
		if err != nil {
			if errors.Is(err, redis.ErrLockHeld) {
				return nil, ErrSectionBusy
			}
			s.logger.Warn("获取批量建班锁失败，降级为无锁执行", zap.String("scope", scope), zap.Error(err))
		} else {
			defer lock.Release(context.WithoutCancel(ctx))
		}
	}

	existing, err := s.repo.Section.ListNames(ctx, req.ProgramCode, req.SemesterID)
	if err != nil {
		s.logger.Error("查询已有班级名称失败", zap.Error(err))
		return nil, err
	}

	names := sequence.Generate(req.ProgramCode, req.YearLevel, req.Count, existing)
	sections := make([]model.Section, 0, len(names))
	for _, name := range names {
		sections = append(sections, *s.newSection(name, req.ProgramCode, req.YearLevel, req.SemesterID, req.Capacity, operator))
	}

	if err := s.repo.Section.CreateBatch(ctx, sections); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			s.logger.Warn("批量建班名称冲突", zap.String("scope", scope), zap.Strings("names", names))
			return nil, ErrSectionNameTaken
		}
		s.logger.Error("批量创建班级失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.BulkCreateSectionsResponse{
		Names:    names,
		Sections: make([]dto.SectionResponse, 0, len(sections)),
	}
	for i := range sections {
		resp.Sections = append(resp.Sections, *toSectionResponse(&sections[i]))
	}

	s.logger.Info("批量创建班级成功", zap.String("scope", scope), zap.Strings("names", names))
	return resp, nil
}

// ────────────────────── Delete ──────────────────────

// Delete 删除班级，级联删除其课程分配与排课
func (s *sectionService) Delete(ctx context.Context, id string) error {
	section, err := s.repo.Section.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSectionNotFound
		}
		s.logger.Error("查询班级失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if err := s.repo.Section.Delete(ctx, id); err != nil {
		s.logger.Error("删除班级失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.timetables.removeSection(section.SemesterID, section.SectionID)
	s.logger.Info("班级已删除", zap.String("section", section.Name))
	return nil
}

// ── 内部辅助方法 ──

func (s *sectionService) checkSemester(ctx context.Context, id string) error {
	if _, err := s.repo.Semester.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *sectionService) newSection(name, programCode string, yearLevel int, semesterID string, capacity int, operator string) *model.Section {
	if capacity <= 0 {
		capacity = 40
	}
	section := &model.Section{
		Name:        name,
		ProgramCode: strings.ToUpper(strings.TrimSpace(programCode)),
		YearLevel:   yearLevel,
		SemesterID:  semesterID,
		Capacity:    capacity,
	}
	section.CreatedBy = operatorPtr(operator)
	section.UpdatedBy = operatorPtr(operator)
	return section
}

func toSectionResponse(section *model.Section) *dto.SectionResponse {
	return &dto.SectionResponse{
		ID:          section.SectionID,
		Name:        section.Name,
		ProgramCode: section.ProgramCode,
		YearLevel:   section.YearLevel,
		SemesterID:  section.SemesterID,
		Capacity:    section.Capacity,
		CreatedAt:   section.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
