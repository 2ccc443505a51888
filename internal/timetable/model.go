package timetable

// Assignment 班级-课程分配（与上课时间、地点无关）
type Assignment struct {
	ID           string
	SectionID    string
	SectionName  string
	SubjectID    string
	SubjectCode  string
	SubjectTitle string
	Semester     string
}

// Slot 一次具体的每周上课安排
type Slot struct {
	ID           string
	AssignmentID string
	SectionID    string
	SectionName  string
	SubjectID    string
	SubjectCode  string
	SubjectTitle string
	Room         string // 空字符串表示尚未分配教室
	Interval     Interval
}

// HasRoom 是否已分配教室
func (s Slot) HasRoom() bool { return s.Room != "" }

// Record 转为对外交换的记录格式
func (s Slot) Record() SlotRecord {
	rec := SlotRecord{
		ID:           s.ID,
		AssignmentID: s.AssignmentID,
		Day:          s.Interval.Day().String(),
		StartTime:    s.Interval.Start().String(),
		EndTime:      s.Interval.End().String(),
	}
	if s.HasRoom() {
		room := s.Room
		rec.RoomName = &room
	}
	return rec
}

// withAssignment 用分配信息补全冗余字段
func (s Slot) withAssignment(a Assignment) Slot {
	s.AssignmentID = a.ID
	s.SectionID = a.SectionID
	s.SectionName = a.SectionName
	s.SubjectID = a.SubjectID
	s.SubjectCode = a.SubjectCode
	s.SubjectTitle = a.SubjectTitle
	return s
}

// SlotRecord 排课记录：加载时的输入、放置成功后的持久化输出
type SlotRecord struct {
	ID           string  `json:"id,omitempty"`
	AssignmentID string  `json:"assignment_id"`
	RoomName     *string `json:"room_name"`
	Day          string  `json:"day"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
}

// ConflictReport 冲突报告（供界面展示）
type ConflictReport struct {
	Kind            ConflictKind `json:"kind"`
	ConflictingSlot SlotRecord   `json:"conflicting_slot"`
	Subject         string       `json:"subject"`
	Section         string       `json:"section"`
	Room            string       `json:"room,omitempty"`
	TimeRange       string       `json:"time_range"`
}
