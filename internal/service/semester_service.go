package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/model"
	"campus-registrar/backend/internal/repository"
	pkgerrors "campus-registrar/backend/pkg/errors"
)

// ── 学期模块业务错误 ──

var (
	ErrSemesterNotFound    = errors.New("学期不存在")
	ErrSemesterDateInvalid = errors.New("学期结束日期必须晚于开始日期")
	ErrSemesterCodeTaken   = errors.New("学期代码已存在")
)

// SemesterService 学期业务接口
type SemesterService interface {
	Create(ctx context.Context, req *dto.CreateSemesterRequest, operator string) (*dto.SemesterResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error)
	GetCurrent(ctx context.Context) (*dto.SemesterResponse, error)
	List(ctx context.Context) ([]dto.SemesterResponse, error)
	Activate(ctx context.Context, id string, operator string) error
	Resolve(ctx context.Context, ref string) (*dto.SemesterResponse, error)
}

type semesterService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSemesterService 创建 SemesterService 实例
func NewSemesterService(repo *repository.Repository, logger *zap.Logger) SemesterService {
	return &semesterService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *semesterService) Create(ctx context.Context, req *dto.CreateSemesterRequest, operator string) (*dto.SemesterResponse, error) {
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, ErrSemesterDateInvalid
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, ErrSemesterDateInvalid
	}
	if !endDate.After(startDate) {
		return nil, ErrSemesterDateInvalid
	}

	semester := &model.Semester{
		Code:      req.Code,
		Name:      req.Name,
		StartDate: startDate,
		EndDate:   endDate,
		IsActive:  false,
	}
	semester.CreatedBy = operatorPtr(operator)
	semester.UpdatedBy = operatorPtr(operator)

	if err := s.repo.Semester.Create(ctx, semester); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrSemesterCodeTaken
		}
		s.logger.Error("创建学期失败", zap.Error(err))
		return nil, err
	}

	return s.toSemesterResponse(semester), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *semesterService) GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toSemesterResponse(semester), nil
}

// ────────────────────── GetCurrent ──────────────────────

func (s *semesterService) GetCurrent(ctx context.Context) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询当前学期失败", zap.Error(err))
		return nil, err
	}

	return s.toSemesterResponse(semester), nil
}

// ────────────────────── List ──────────────────────

func (s *semesterService) List(ctx context.Context) ([]dto.SemesterResponse, error) {
	semesters, err := s.repo.Semester.List(ctx)
	if err != nil {
		s.logger.Error("列出学期失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SemesterResponse, 0, len(semesters))
	for i := range semesters {
		result = append(result, *s.toSemesterResponse(&semesters[i]))
	}

	return result, nil
}

// ────────────────────── Activate ──────────────────────

func (s *semesterService) Activate(ctx context.Context, id string, operator string) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
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

	if err := s.repo.WithTx(tx).Semester.Activate(ctx, id, operatorPtr(operator)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSemesterNotFound
		}
		s.logger.Error("激活学期失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}

	s.logger.Info("学期已激活", zap.String("id", id), zap.String("operator", operator))
	return nil
}

// ────────────────────── Resolve ──────────────────────

// Resolve 命令行按学期 ID 或代码指定学期，空值表示当前学期
func (s *semesterService) Resolve(ctx context.Context, ref string) (*dto.SemesterResponse, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return s.GetCurrent(ctx)
	}
	semester, err := s.repo.Semester.GetByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("ref", ref), zap.Error(err))
		return nil, err
	}
	return s.toSemesterResponse(semester), nil
}

// ── 内部辅助方法 ──

func (s *semesterService) toSemesterResponse(semester *model.Semester) *dto.SemesterResponse {
	return &dto.SemesterResponse{
		ID:        semester.SemesterID,
		Code:      semester.Code,
		Name:      semester.Name,
		StartDate: semester.StartDate.Format("2006-01-02"),
		EndDate:   semester.EndDate.Format("2006-01-02"),
		IsActive:  semester.IsActive,
		CreatedAt: semester.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: semester.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
