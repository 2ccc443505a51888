package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/service"
	"campus-registrar/backend/internal/timetable"
	"campus-registrar/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportXLSX 导出班级或教室课表
// GET /api/v1/export/timetable.xlsx?scope=section|room&key=xxx&semester=xxx
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	var req dto.ExportXLSXRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	scope := timetable.RoomScope(req.Key)
	if req.Scope == string(timetable.ScopeSection) {
		if _, err := uuid.Parse(req.Key); err != nil {
			response.BadRequest(c, 10001, "班级ID格式无效")
			return
		}
		scope = timetable.SectionScope(req.Key)
	}

	buf, filename, err := h.exportSvc.ExportXLSX(c.Request.Context(), scope, req.SemesterID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

// ExportICS 导出班级课表为日历
// GET /api/v1/export/timetable.ics?section_id=xxx
func (h *ExportHandler) ExportICS(c *gin.Context) {
	var req dto.ExportICSRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "section_id 不能为空")
		return
	}

	buf, filename, err := h.exportSvc.ExportICS(c.Request.Context(), req.SectionID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeICS, buf.Bytes())
}

// attachment 设置下载响应头
func attachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportEmpty):
		response.BadRequest(c, 19001, "该班级暂无排课")
	case errors.Is(err, service.ErrExportIntegrity):
		response.Error(c, http.StatusInternalServerError, 19002, "课表无法正确显示，请联系教务管理员")
	case errors.Is(err, service.ErrRoomSemesterRequired):
		response.BadRequest(c, 18009, "教室课表需要指定学期")
	case errors.Is(err, service.ErrSectionNotFound):
		response.NotFound(c, 17001, "班级不存在")
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 14001, "学期不存在")
	case errors.Is(err, service.ErrTimetableLoad):
		response.Error(c, http.StatusInternalServerError, 18010, "课表数据加载失败，请联系教务管理员")
	default:
		response.InternalError(c)
	}
}
