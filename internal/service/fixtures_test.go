package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"campus-registrar/backend/config"
	"campus-registrar/backend/internal/dto"
	"campus-registrar/backend/internal/model"
	"campus-registrar/backend/internal/repository"
)

// 测试数据 ID 为 uuid 格式，与 handler 层 binding 规则一致
const (
	testSemester  = "00000000-0000-0000-0000-00000000a001"
	testSection1  = "00000000-0000-0000-0000-00000000b001"
	testSection2  = "00000000-0000-0000-0000-00000000b002"
	testSubject1  = "00000000-0000-0000-0000-00000000c101"
	testSubject2  = "00000000-0000-0000-0000-00000000c102"
	testRoomLab   = "R301"
	testRoomOther = "R302"
)

// 周一至周五，07:00-21:00，每格 1 小时：09:00 为第 2 格
var testTimetableConfig = config.TimetableConfig{
	Days:     []int{1, 2, 3, 4, 5},
	Open:     "07:00",
	Close:    "21:00",
	Tick:     time.Hour,
	MaxViews: 8,
}

type timetableFixture struct {
	repo  *repository.Repository
	mocks *mockRepos
	tt    *timetables
	svc   TimetableService
}

// setupTimetableFixture 一个学期、两门课程、两个班级、两间教室
func setupTimetableFixture(t *testing.T) *timetableFixture {
	t.Helper()
	repo, mocks := newMockRepository()

	mocks.semesters.semesters[testSemester] = &model.Semester{
		SemesterID: testSemester,
		Code:       "2025-1",
		Name:       "AY 2025-2026 First Semester",
		StartDate:  time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC), // 周一
		EndDate:    time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC),
		IsActive:   true,
	}
	mocks.subjects.subjects[testSubject1] = &model.Subject{SubjectID: testSubject1, Code: "CS101", Title: "Intro to Computing", Units: 3}
	mocks.subjects.subjects[testSubject2] = &model.Subject{SubjectID: testSubject2, Code: "CS102", Title: "Programming 1", Units: 3}
	mocks.sections.sections[testSection1] = &model.Section{SectionID: testSection1, Name: "BSIT1-1", ProgramCode: "BSIT", YearLevel: 1, SemesterID: testSemester, Capacity: 40}
	mocks.sections.sections[testSection2] = &model.Section{SectionID: testSection2, Name: "BSIT1-2", ProgramCode: "BSIT", YearLevel: 1, SemesterID: testSemester, Capacity: 40}
	mocks.rooms.rooms["room-1"] = &model.Room{RoomID: "room-1", Name: testRoomLab, Capacity: 40, RoomType: model.RoomTypeLecture, IsActive: true, VersionedModel: versioned(1)}
	mocks.rooms.rooms["room-2"] = &model.Room{RoomID: "room-2", Name: testRoomOther, Capacity: 40, RoomType: model.RoomTypeLecture, IsActive: true, VersionedModel: versioned(1)}

	grid, err := NewGridConfig(&testTimetableConfig)
	if err != nil {
		t.Fatalf("网格配置无效: %v", err)
	}
	tt := newTimetables(repo, grid, testTimetableConfig.MaxViews, zap.NewNop())
	return &timetableFixture{
		repo:  repo,
		mocks: mocks,
		tt:    tt,
		svc:   NewTimetableService(repo, tt, zap.NewNop()),
	}
}

func versioned(v int) model.VersionedModel {
	return model.VersionedModel{Version: v}
}

func placeReq(section, subject, room, day string, tick, ticks int) *dto.PlacementRequest {
	return &dto.PlacementRequest{
		SemesterID: testSemester,
		SectionID:  section,
		SubjectID:  subject,
		RoomName:   room,
		Day:        day,
		Tick:       &tick,
		Ticks:      ticks,
	}
}

// mustPlace 放置并要求成功
func (f *timetableFixture) mustPlace(t *testing.T, req *dto.PlacementRequest) *dto.PlacementResponse {
	t.Helper()
	resp, err := f.svc.Place(context.Background(), req, "registrar-01")
	if err != nil {
		t.Fatalf("放置应成功: %v", err)
	}
	return resp
}

// insertRemote 绕过服务直接写数据库，模拟另一个实例的写入
func (f *timetableFixture) insertRemote(linkID, section, subject, slotID string, day int, start, end string, room *string) {
	if _, ok := f.mocks.links.links[linkID]; !ok {
		f.mocks.links.links[linkID] = &model.SectionSubject{
			SectionSubjectID: linkID,
			SectionID:        section,
			SubjectID:        subject,
			SemesterID:       testSemester,
		}
	}
	f.mocks.slots.slots[slotID] = &model.ScheduleSlot{
		ScheduleSlotID:   slotID,
		SectionSubjectID: linkID,
		SemesterID:       testSemester,
		RoomName:         room,
		DayOfWeek:        day,
		StartTime:        start,
		EndTime:          end,
	}
}

func strPtr(s string) *string { return &s }
