package model

// SectionSubject 班级-课程分配表，对应 section_subjects
// 主键由排课会话生成（与内存存储中的分配 ID 一致），(section_id, subject_id) 唯一
type SectionSubject struct {
	SectionSubjectID string `gorm:"type:uuid;primaryKey"      json:"section_subject_id"`
	SectionID        string `gorm:"type:uuid;not null"        json:"section_id"`
	SubjectID        string `gorm:"type:uuid;not null"        json:"subject_id"`
	SemesterID       string `gorm:"type:uuid;not null;index"  json:"semester_id"`
	BaseModel

	// 关联
	Section *Section `gorm:"foreignKey:SectionID;references:SectionID" json:"section,omitempty"`
	Subject *Subject `gorm:"foreignKey:SubjectID;references:SubjectID" json:"subject,omitempty"`
}

// TableName 指定表名
func (SectionSubject) TableName() string { return "section_subjects" }
