package dto

import "campus-registrar/backend/internal/timetable"

// ── 课表网格 ──

// GridQuery 教室视图需要指定学期；班级视图由班级推导
type GridQuery struct {
	SemesterID string `form:"semester" binding:"omitempty,uuid"`
}

// GridResponse 课表投影
type GridResponse struct {
	Scope    string       `json:"scope"`
	Key      string       `json:"key"`
	Version  uint64       `json:"version"`
	Days     []string     `json:"days"`
	Ticks    []TickRow    `json:"ticks"`
	Hidden   []SlotDetail `json:"hidden,omitempty"`
	Crowded  []SlotDetail `json:"crowded,omitempty"` // 与相邻课程挤在同一格、未单独占格
	Degraded bool         `json:"degraded"`
	Notice   string       `json:"notice,omitempty"`
}

// TickRow 网格的一行
type TickRow struct {
	Tick  int        `json:"tick"`
	Start string     `json:"start"`
	Cells []GridCell `json:"cells"`
}

// GridCell 网格单元格：empty | anchor | suppressed
type GridCell struct {
	Day        string      `json:"day"`
	State      string      `json:"state"`
	Span       int         `json:"span,omitempty"`
	AnchorTick *int        `json:"anchor_tick,omitempty"`
	Slot       *SlotDetail `json:"slot,omitempty"`
}

// SlotDetail 排课详情（网格、导出、审计共用）
type SlotDetail struct {
	timetable.SlotRecord
	SectionID   string `json:"section_id"`
	SectionName string `json:"section_name"`
	SubjectID   string `json:"subject_id"`
	SubjectCode string `json:"subject_code"`
	Subject     string `json:"subject"`
}

// ── 课程分配 ──

// AssignmentResponse 课程分配及其排课数量；slot_count 为 0 表示“已分配未排课”
type AssignmentResponse struct {
	ID           string `json:"id"`
	SectionID    string `json:"section_id"`
	SubjectID    string `json:"subject_id"`
	SubjectCode  string `json:"subject_code"`
	SubjectTitle string `json:"subject_title"`
	SlotCount    int    `json:"slot_count"`
}

// ── 放置 ──

// PlacementRequest 放置请求：在某个单元格放下一门课程
type PlacementRequest struct {
	SemesterID string `json:"semester"   binding:"required,uuid"`
	SectionID  string `json:"section_id" binding:"required,uuid"`
	SubjectID  string `json:"subject_id" binding:"required,uuid"`
	RoomName   string `json:"room_name"  binding:"omitempty,max=50"`
	Day        string `json:"day"        binding:"required"`
	Tick       *int   `json:"tick"       binding:"required,min=0"`
	Ticks      int    `json:"ticks"      binding:"omitempty,min=1,max=12"`
	// View 放置所在视图：section（默认）| room
	View string `json:"view" binding:"omitempty,oneof=section room"`
}

// PlacementResponse 放置成功结果
type PlacementResponse struct {
	Slot              timetable.SlotRecord `json:"slot"`
	AssignmentCreated bool                 `json:"assignment_created"`
}

// SemesterQuery 需要学期参数的接口
type SemesterQuery struct {
	SemesterID string `form:"semester" binding:"required,uuid"`
}

// ── 审计 ──

// CollisionResponse 审计发现的一对重叠排课
type CollisionResponse struct {
	Kind  string     `json:"kind"`
	Key   string     `json:"key"`
	First SlotDetail `json:"first"`
	Other SlotDetail `json:"other"`
}

// AuditResponse 审计结果
type AuditResponse struct {
	SemesterID string              `json:"semester_id"`
	Slots      int                 `json:"slots"`
	Collisions []CollisionResponse `json:"collisions"`
}

// ── 导出 ──

// ExportXLSXRequest 导出 Excel 课表
type ExportXLSXRequest struct {
	Scope      string `form:"scope"    binding:"required,oneof=section room"`
	Key        string `form:"key"      binding:"required"`
	SemesterID string `form:"semester" binding:"omitempty,uuid"`
}

// ExportICSRequest 导出班级 ICS 日历
type ExportICSRequest struct {
	SectionID string `form:"section_id" binding:"required,uuid"`
}
