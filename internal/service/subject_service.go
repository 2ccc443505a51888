package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/model"
	"campus-registrar/backend/internal/repository"
	pkgerrors "campus-registrar/backend/pkg/errors"
)

// ── 课程模块业务错误 ──

var (
	ErrSubjectNotFound  = errors.New("课程不存在")
	ErrSubjectCodeTaken = errors.New("课程代码已存在")
)

// SubjectService 课程业务接口
type SubjectService interface {
	Create(ctx context.Context, req *dto.CreateSubjectRequest, operator string) (*dto.SubjectResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SubjectResponse, error)
	List(ctx context.Context) ([]dto.SubjectResponse, error)
}

type subjectService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSubjectService 创建 SubjectService 实例
func NewSubjectService(repo *repository.Repository, logger *zap.Logger) SubjectService {
	return &subjectService{repo: repo, logger: logger}
}

func (s *subjectService) Create(ctx context.Context, req *dto.CreateSubjectRequest, operator string) (*dto.SubjectResponse, error) {
	subject := &model.Subject{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Title:       req.Title,
		Units:       req.Units,
		SubjectType: req.SubjectType,
	}
	if subject.Units == 0 {
		subject.Units = 3
	}
	if subject.SubjectType == "" {
		subject.SubjectType = "lecture"
	}
	subject.CreatedBy = operatorPtr(operator)
	subject.UpdatedBy = operatorPtr(operator)

	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrSubjectCodeTaken
		}
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}
	return toSubjectResponse(subject), nil
}

func (s *subjectService) GetByID(ctx context.Context, id string) (*dto.SubjectResponse, error) {
	subject, err := s.repo.Subject.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toSubjectResponse(subject), nil
}

func (s *subjectService) List(ctx context.Context) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.Subject.List(ctx)
	if err != nil {
		s.logger.Error("列出课程失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		result = append(result, *toSubjectResponse(&subjects[i]))
	}
	return result, nil
}

func toSubjectResponse(subject *model.Subject) *dto.SubjectResponse {
	return &dto.SubjectResponse{
		ID:          subject.SubjectID,
		Code:        subject.Code,
		Title:       subject.Title,
		Units:       subject.Units,
		SubjectType: subject.SubjectType,
	}
}
