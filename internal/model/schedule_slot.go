package model

// ScheduleSlot 排课表，对应 schedule_slots
// 只通过放置流程创建、通过删除移除，不做原地修改
type ScheduleSlot struct {
	ScheduleSlotID   string  `gorm:"type:uuid;primaryKey"     json:"schedule_slot_id"  validate:"required"`
	SectionSubjectID string  `gorm:"type:uuid;not null"       json:"section_subject_id" validate:"required"`
	SemesterID       string  `gorm:"type:uuid;not null;index" json:"semester_id"       validate:"required"`
	RoomName         *string `gorm:"type:varchar(50)"         json:"room_name"         validate:"omitempty,min=1,max=50"`
	DayOfWeek        int     `gorm:"type:smallint;not null"   json:"day_of_week"       validate:"min=1,max=7"` // 1-7
	StartTime        string  `gorm:"type:time;not null"       json:"start_time"        validate:"required"`
	EndTime          string  `gorm:"type:time;not null"       json:"end_time"          validate:"required"`
	BaseModel

	// 关联
	SectionSubject *SectionSubject `gorm:"foreignKey:SectionSubjectID;references:SectionSubjectID" json:"section_subject,omitempty" validate:"-"`
}

// TableName 指定表名
func (ScheduleSlot) TableName() string { return "schedule_slots" }
