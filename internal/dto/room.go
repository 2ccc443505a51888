package dto

// ── 教室模块 DTO ──

// CreateRoomRequest 创建教室请求
type CreateRoomRequest struct {
	Name     string `json:"name"      binding:"required,min=1,max=50"`
	Capacity int    `json:"capacity"  binding:"required,min=1,max=1000"`
	RoomType string `json:"room_type" binding:"omitempty,oneof=lecture laboratory"`
}

// UpdateRoomRequest 更新教室请求；version 用于乐观锁
type UpdateRoomRequest struct {
	Name     *string `json:"name"      binding:"omitempty,min=1,max=50"`
	Capacity *int    `json:"capacity"  binding:"omitempty,min=1,max=1000"`
	RoomType *string `json:"room_type" binding:"omitempty,oneof=lecture laboratory"`
	Version  int     `json:"version"   binding:"required,min=1"`
}

// RoomListRequest 教室列表查询参数
type RoomListRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

// RoomResponse 教室信息响应
type RoomResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	RoomType  string `json:"room_type"`
	IsActive  bool   `json:"is_active"`
	Version   int    `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ArchiveRoomResponse 归档结果：被一并移除的排课数
type ArchiveRoomResponse struct {
	Room         RoomResponse `json:"room"`
	RemovedSlots int64        `json:"removed_slots"`
}
