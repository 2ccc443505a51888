package handler

import "campus-registrar/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Semester  *SemesterHandler
	Room      *RoomHandler
	Subject   *SubjectHandler
	Section   *SectionHandler
	Timetable *TimetableHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Semester:  NewSemesterHandler(svc.Semester),
		Room:      NewRoomHandler(svc.Room),
		Subject:   NewSubjectHandler(svc.Subject),
		Section:   NewSectionHandler(svc.Section),
		Timetable: NewTimetableHandler(svc.Timetable),
		Export:    NewExportHandler(svc.Export),
	}
}
