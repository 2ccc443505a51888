package model

// Subject 课程表，对应 subjects（排课只读引用）
type Subject struct {
	SubjectID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	Code        string `gorm:"type:varchar(20);not null;uniqueIndex"          json:"code"`
	Title       string `gorm:"type:varchar(200);not null"                     json:"title"`
	Units       int    `gorm:"type:smallint;not null;default:3"               json:"units"`
	SubjectType string `gorm:"type:varchar(20);not null;default:'lecture'"    json:"subject_type"` // lecture | lab
	BaseModel
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }
