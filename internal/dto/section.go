package dto

// ── 班级模块 DTO ──

// CreateSectionRequest 创建单个班级请求
type CreateSectionRequest struct {
	Name        string `json:"name"         binding:"required,min=1,max=50"`
	ProgramCode string `json:"program_code" binding:"required,min=1,max=20"`
	YearLevel   int    `json:"year_level"   binding:"required,min=1,max=10"`
	SemesterID  string `json:"semester"     binding:"required,uuid"`
	Capacity    int    `json:"capacity"     binding:"omitempty,min=1,max=500"`
}

// BulkCreateSectionsRequest 批量生成班级请求
type BulkCreateSectionsRequest struct {
	ProgramCode string `json:"program_code" binding:"required,min=1,max=20"`
	YearLevel   int    `json:"year_level"   binding:"required,min=1,max=10"`
	SemesterID  string `json:"semester"     binding:"required,uuid"`
	Count       int    `json:"count"        binding:"required,min=1,max=50"`
	Capacity    int    `json:"capacity"     binding:"omitempty,min=1,max=500"`
}

// SectionListRequest 班级列表查询参数
type SectionListRequest struct {
	SemesterID  string `form:"semester"     binding:"omitempty,uuid"`
	ProgramCode string `form:"program_code" binding:"omitempty,max=20"`
	YearLevel   int    `form:"year_level"   binding:"omitempty,min=1,max=10"`
}

// NextSectionNameRequest 预览下一个班级名称
type NextSectionNameRequest struct {
	ProgramCode string `form:"program_code" binding:"required,max=20"`
	YearLevel   int    `form:"year_level"   binding:"required,min=1,max=10"`
	SemesterID  string `form:"semester"     binding:"required,uuid"`
}

// NextSectionNameResponse 预览结果
type NextSectionNameResponse struct {
	Next int    `json:"next"`
	Name string `json:"name"`
}

// SectionResponse 班级信息响应
type SectionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ProgramCode string `json:"program_code"`
	YearLevel   int    `json:"year_level"`
	SemesterID  string `json:"semester_id"`
	Capacity    int    `json:"capacity"`
	CreatedAt   string `json:"created_at"`
}

// BulkCreateSectionsResponse 批量生成结果
type BulkCreateSectionsResponse struct {
	Names    []string          `json:"names"`
	Sections []SectionResponse `json:"sections"`
}
