package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/service"
	pkgerrors "campus-registrar/backend/pkg/errors"
	"campus-registrar/backend/pkg/response"
)

// RoomHandler 教室模块 HTTP 处理器
type RoomHandler struct {
	roomSvc service.RoomService
}

// NewRoomHandler 创建 RoomHandler
func NewRoomHandler(roomSvc service.RoomService) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc}
}

// ListRooms 获取教室列表
// GET /api/v1/rooms?include_inactive=true
func (h *RoomHandler) ListRooms(c *gin.Context) {
	var req dto.RoomListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	rooms, err := h.roomSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": rooms})
}

// GetRoom 获取教室详情
// GET /api/v1/rooms/:id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	id, ok := MustParamUUID(c, "id", "教室ID")
	if !ok {
		return
	}

	room, err := h.roomSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.OK(c, room)
}

// CreateRoom 创建教室
// POST /api/v1/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	room, err := h.roomSvc.Create(c.Request.Context(), &req, GetOperator(c))
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.Created(c, room)
}

// UpdateRoom 更新教室（乐观锁）
// PUT /api/v1/rooms/:id
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	id, ok := MustParamUUID(c, "id", "教室ID")
	if !ok {
		return
	}

	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	room, err := h.roomSvc.Update(c.Request.Context(), id, &req, GetOperator(c))
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.OK(c, room)
}

// ArchiveRoom 归档教室，同时移除其全部排课
// DELETE /api/v1/rooms/:id
func (h *RoomHandler) ArchiveRoom(c *gin.Context) {
	id, ok := MustParamUUID(c, "id", "教室ID")
	if !ok {
		return
	}

	result, err := h.roomSvc.Archive(c.Request.Context(), id, GetOperator(c))
	if err != nil {
		h.handleRoomError(c, err)
		return
	}

	response.OK(c, result)
}

// handleRoomError 统一处理教室模块业务错误
func (h *RoomHandler) handleRoomError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		response.NotFound(c, 15001, "教室不存在")
	case errors.Is(err, service.ErrRoomArchived):
		response.BadRequest(c, 15002, "教室已归档")
	case errors.Is(err, service.ErrRoomNameTaken):
		response.Conflict(c, 15003, "教室名称已存在", nil)
	case errors.Is(err, service.ErrRoomInUse):
		response.Conflict(c, 15004, "教室已有排课，不能改名", nil)
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 15005, "教室已被其他操作修改，请刷新后重试", nil)
	default:
		response.InternalError(c)
	}
}
