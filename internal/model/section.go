package model

// Section 班级表，对应 sections
// 名称在 (program_code, semester_id) 范围内唯一，由数据库约束最终裁决
type Section struct {
	SectionID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"section_id"`
	Name        string `gorm:"type:varchar(50);not null"                      json:"name"`
	ProgramCode string `gorm:"type:varchar(20);not null"                      json:"program_code"`
	YearLevel   int    `gorm:"type:smallint;not null"                         json:"year_level"`
	SemesterID  string `gorm:"type:uuid;not null;index"                       json:"semester_id"`
	Capacity    int    `gorm:"not null;default:40"                            json:"capacity"`
	BaseModel

	// 关联
	Semester *Semester `gorm:"foreignKey:SemesterID;references:SemesterID" json:"semester,omitempty"`
}

// TableName 指定表名
func (Section) TableName() string { return "sections" }
