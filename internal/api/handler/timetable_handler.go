package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/service"
	"campus-registrar/backend/internal/timetable"
	"campus-registrar/backend/pkg/response"
)

// TimetableHandler 课表模块 HTTP 处理器
type TimetableHandler struct {
	timetableSvc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler
func NewTimetableHandler(timetableSvc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{timetableSvc: timetableSvc}
}

// SectionGrid 班级课表网格
// GET /api/v1/timetable/sections/:id/grid
func (h *TimetableHandler) SectionGrid(c *gin.Context) {
	id, ok := MustParamUUID(c, "id", "班级ID")
	if !ok {
		return
	}

	grid, err := h.timetableSvc.SectionGrid(c.Request.Context(), id)
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, grid)
}

// RoomGrid 教室课表网格
// GET /api/v1/timetable/rooms/:name/grid?semester=xxx
func (h *TimetableHandler) RoomGrid(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		response.BadRequest(c, 10001, "教室名称不能为空")
		return
	}

	var q dto.GridQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	grid, err := h.timetableSvc.RoomGrid(c.Request.Context(), q.SemesterID, name)
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, grid)
}

// Assignments 班级课程分配及排课数量
// GET /api/v1/timetable/sections/:id/assignments
func (h *TimetableHandler) Assignments(c *gin.Context) {
	id, ok := MustParamUUID(c, "id", "班级ID")
	if !ok {
		return
	}

	list, err := h.timetableSvc.Assignments(c.Request.Context(), id)
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Place 拖放排课
// POST /api/v1/timetable/placements
// 冲突时返回 409，data 为冲突报告
func (h *TimetableHandler) Place(c *gin.Context) {
	var req dto.PlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.timetableSvc.Place(c.Request.Context(), &req, GetOperator(c))
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.Created(c, result)
}

// RemoveSlot 删除排课（幂等）
// DELETE /api/v1/timetable/slots/:id?semester=xxx
func (h *TimetableHandler) RemoveSlot(c *gin.Context) {
	id, ok := MustParamUUID(c, "id", "排课ID")
	if !ok {
		return
	}

	var q dto.SemesterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "semester 不能为空")
		return
	}

	if err := h.timetableSvc.RemoveSlot(c.Request.Context(), q.SemesterID, id, GetOperator(c)); err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, nil)
}

// Audit 全学期重叠审计
// GET /api/v1/timetable/audit?semester=xxx
func (h *TimetableHandler) Audit(c *gin.Context) {
	var q dto.SemesterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "semester 不能为空")
		return
	}

	result, err := h.timetableSvc.Audit(c.Request.Context(), q.SemesterID)
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, result)
}

// handleTimetableError 统一处理课表模块业务错误
func (h *TimetableHandler) handleTimetableError(c *gin.Context, err error) {
	var conflict *timetable.ConflictError
	if errors.As(err, &conflict) {
		code := 18001
		if conflict.Kind == timetable.ConflictRoom {
			code = 18002
		}
		response.Conflict(c, code, conflict.Error(), timetable.NewConflictReport(conflict.Kind, conflict.Existing))
		return
	}

	switch {
	case errors.Is(err, timetable.ErrCellNotDroppable):
		response.Conflict(c, 18003, "该单元格已被占用", nil)
	case errors.Is(err, service.ErrTimetableStale):
		response.Conflict(c, 18004, "课表已被其他用户修改，请刷新后重试", nil)
	case errors.Is(err, service.ErrPlacementInvalidDay):
		response.BadRequest(c, 18005, "无效的星期")
	case errors.Is(err, service.ErrPlacementOutOfWindow),
		errors.Is(err, timetable.ErrInvalidInterval):
		response.BadRequest(c, 18006, "放置位置超出课表时间范围")
	case errors.Is(err, service.ErrPlacementNeedsRoom):
		response.BadRequest(c, 18007, "教室视图下必须指定教室")
	case errors.Is(err, service.ErrSectionSemesterMismatch):
		response.BadRequest(c, 18008, "班级不属于该学期")
	case errors.Is(err, service.ErrRoomSemesterRequired):
		response.BadRequest(c, 18009, "教室课表需要指定学期")
	case errors.Is(err, service.ErrTimetableLoad):
		response.Error(c, http.StatusInternalServerError, 18010, "课表数据加载失败，请联系教务管理员")
	case errors.Is(err, service.ErrSectionNotFound):
		response.NotFound(c, 17001, "班级不存在")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 16001, "课程不存在")
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, 15001, "教室不存在")
	case errors.Is(err, service.ErrRoomArchived):
		response.BadRequest(c, 15002, "教室已归档")
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 14001, "学期不存在")
	default:
		response.InternalError(c)
	}
}
