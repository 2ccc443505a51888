package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/service"
	"campus-registrar/backend/pkg/response"
)

// SubjectHandler 课程模块 HTTP 处理器
type SubjectHandler struct {
	subjectSvc service.SubjectService
}

// NewSubjectHandler 创建 SubjectHandler
func NewSubjectHandler(subjectSvc service.SubjectService) *SubjectHandler {
	return &SubjectHandler{subjectSvc: subjectSvc}
}

// ListSubjects 获取课程列表
// GET /api/v1/subjects
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.subjectSvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": subjects})
}

// GetSubject 获取课程详情
// GET /api/v1/subjects/:id
func (h *SubjectHandler) GetSubject(c *gin.Context) {
	id, ok := MustParamUUID(c, "id", "课程ID")
	if !ok {
		return
	}

	subject, err := h.subjectSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, subject)
}

// CreateSubject 创建课程
// POST /api/v1/subjects
func (h *SubjectHandler) CreateSubject(c *gin.Context) {
	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	subject, err := h.subjectSvc.Create(c.Request.Context(), &req, GetOperator(c))
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.Created(c, subject)
}

func (h *SubjectHandler) handleSubjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 16001, "课程不存在")
	case errors.Is(err, service.ErrSubjectCodeTaken):
		response.Conflict(c, 16002, "课程代码已存在", nil)
	default:
		response.InternalError(c)
	}
}
