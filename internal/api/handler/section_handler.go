package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/service"
	"campus-registrar/backend/pkg/response"
)

// SectionHandler 班级模块 HTTP 处理器
type SectionHandler struct {
	sectionSvc service.SectionService
}

// NewSectionHandler 创建 SectionHandler
func NewSectionHandler(sectionSvc service.SectionService) *SectionHandler {
	return &SectionHandler{sectionSvc: sectionSvc}
}

// ListSections 获取班级列表
// GET /api/v1/sections?semester=&program_code=&year_level=
func (h *SectionHandler) ListSections(c *gin.Context) {
	var req dto.SectionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	sections, err := h.sectionSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": sections})
}

// CreateSection 创建单个班级
// POST /api/v1/sections
func (h *SectionHandler) CreateSection(c *gin.Context) {
	var req dto.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	section, err := h.sectionSvc.Create(c.Request.Context(), &req, GetOperator(c))
	if err != nil {
		h.handleSectionError(c, err)
		return
	}

	response.Created(c, section)
}

// NextSectionName 预览下一个顺序班级名称
// GET /api/v1/sections/next-name?program_code=&year_level=&semester=
func (h *SectionHandler) NextSectionName(c *gin.Context) {
	var req dto.NextSectionNameRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.sectionSvc.PreviewNext(c.Request.Context(), &req)
	if err != nil {
		h.handleSectionError(c, err)
		return
	}

	response.OK(c, result)
}

// BulkCreateSections 按顺序批量生成班级
// POST /api/v1/sections/bulk
func (h *SectionHandler) BulkCreateSections(c *gin.Context) {
	var req dto.BulkCreateSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.sectionSvc.BulkCreate(c.Request.Context(), &req, GetOperator(c))
	if err != nil {
		h.handleSectionError(c, err)
		return
	}

	response.Created(c, result)
}

// DeleteSection 删除班级（级联删除分配与排课）
// DELETE /api/v1/sections/:id
func (h *SectionHandler) DeleteSection(c *gin.Context) {
	id, ok := MustParamUUID(c, "id", "班级ID")
	if !ok {
		return
	}

	if err := h.sectionSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleSectionError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleSectionError 统一处理班级模块业务错误
func (h *SectionHandler) handleSectionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSectionNotFound):
		response.NotFound(c, 17001, "班级不存在")
	case errors.Is(err, service.ErrSectionNameTaken):
		response.Conflict(c, 17002, "班级名称已存在，请刷新后重试", nil)
	case errors.Is(err, service.ErrSectionBusy):
		response.Conflict(c, 17003, "该专业年级正在批量创建班级，请稍后重试", nil)
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 14001, "学期不存在")
	default:
		response.InternalError(c)
	}
}
