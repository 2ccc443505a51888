package dto

// ── 学期模块 DTO ──

// CreateSemesterRequest 创建学期请求
type CreateSemesterRequest struct {
	Code      string `json:"code"       binding:"required,min=2,max=20"` // "2025-1"
	Name      string `json:"name"       binding:"required,min=2,max=100"`
	StartDate string `json:"start_date" binding:"required"` // "2025-08-11"
	EndDate   string `json:"end_date"   binding:"required"` // "2025-12-19"
}

// SemesterResponse 学期信息响应
type SemesterResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
