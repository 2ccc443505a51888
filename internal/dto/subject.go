package dto

// ── 课程模块 DTO ──

// CreateSubjectRequest 创建课程请求
type CreateSubjectRequest struct {
	Code        string `json:"code"         binding:"required,min=2,max=20"`
	Title       string `json:"title"        binding:"required,min=2,max=200"`
	Units       int    `json:"units"        binding:"omitempty,min=1,max=10"`
	SubjectType string `json:"subject_type" binding:"omitempty,oneof=lecture lab"`
}

// SubjectResponse 课程信息响应
type SubjectResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Units       int    `json:"units"`
	SubjectType string `json:"subject_type"`
}
