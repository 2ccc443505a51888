package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"campus-registrar/backend/internal/model"
	"campus-registrar/backend/internal/repository"
	pkgerrors "campus-registrar/backend/pkg/errors"
)

// ── Mock SemesterRepository ──

type mockSemesterRepo struct {
	semesters map[string]*model.Semester
}

func newMockSemesterRepo() *mockSemesterRepo {
	return &mockSemesterRepo{semesters: make(map[string]*model.Semester)}
}

func (m *mockSemesterRepo) Create(_ context.Context, semester *model.Semester) error {
	for _, s := range m.semesters {
		if s.Code == semester.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	if semester.SemesterID == "" {
		semester.SemesterID = "sem-" + semester.Code
	}
	m.semesters[semester.SemesterID] = semester
	return nil
}

func (m *mockSemesterRepo) GetByID(_ context.Context, id string) (*model.Semester, error) {
	if s, ok := m.semesters[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) GetCurrent(_ context.Context) (*model.Semester, error) {
	for _, s := range m.semesters {
		if s.IsActive {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) List(_ context.Context) ([]model.Semester, error) {
	var result []model.Semester
	for _, s := range m.semesters {
		result = append(result, *s)
	}
	return result, nil
}

func (m *mockSemesterRepo) GetByRef(_ context.Context, ref string) (*model.Semester, error) {
	if s, ok := m.semesters[ref]; ok {
		return s, nil
	}
	for _, s := range m.semesters {
		if s.Code == ref {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSemesterRepo) Activate(_ context.Context, id string, operator *string) error {
	target, ok := m.semesters[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, s := range m.semesters {
		s.IsActive = false
	}
	target.IsActive = true
	target.UpdatedBy = operator
	return nil
}

// ── Mock RoomRepository ──

type mockRoomRepo struct {
	rooms map[string]*model.Room
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{rooms: make(map[string]*model.Room)}
}

func (m *mockRoomRepo) Create(_ context.Context, room *model.Room) error {
	for _, r := range m.rooms {
		if r.Name == room.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	if room.RoomID == "" {
		room.RoomID = "room-" + room.Name
	}
	if room.Version == 0 {
		room.Version = 1
	}
	m.rooms[room.RoomID] = room
	return nil
}

func (m *mockRoomRepo) GetByID(_ context.Context, id string) (*model.Room, error) {
	if r, ok := m.rooms[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomRepo) GetByName(_ context.Context, name string) (*model.Room, error) {
	for _, r := range m.rooms {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomRepo) List(_ context.Context, includeInactive bool) ([]model.Room, error) {
	var result []model.Room
	for _, r := range m.rooms {
		if !includeInactive && !r.IsActive {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockRoomRepo) Update(_ context.Context, room *model.Room) error {
	stored, ok := m.rooms[room.RoomID]
	if !ok || stored.Version != room.Version {
		return pkgerrors.ErrOptimisticLock
	}
	room.Version++
	cp := *room
	m.rooms[room.RoomID] = &cp
	return nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	subjects map[string]*model.Subject
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[string]*model.Subject)}
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	for _, s := range m.subjects {
		if s.Code == subject.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	if subject.SubjectID == "" {
		subject.SubjectID = "subj-" + subject.Code
	}
	m.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) List(_ context.Context) ([]model.Subject, error) {
	var result []model.Subject
	for _, s := range m.subjects {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// ── Mock SectionRepository ──

type mockSectionRepo struct {
	sections map[string]*model.Section
	seq      int
}

func newMockSectionRepo() *mockSectionRepo {
	return &mockSectionRepo{sections: make(map[string]*model.Section)}
}

func (m *mockSectionRepo) taken(s *model.Section) bool {
	for _, existing := range m.sections {
		if existing.ProgramCode == s.ProgramCode && existing.SemesterID == s.SemesterID && existing.Name == s.Name {
			return true
		}
	}
	return false
}

func (m *mockSectionRepo) Create(_ context.Context, section *model.Section) error {
	if m.taken(section) {
		return gorm.ErrDuplicatedKey
	}
	if section.SectionID == "" {
		m.seq++
		section.SectionID = fmt.Sprintf("sec-%d", m.seq)
	}
	m.sections[section.SectionID] = section
	return nil
}

func (m *mockSectionRepo) CreateBatch(ctx context.Context, sections []model.Section) error {
	for i := range sections {
		if m.taken(&sections[i]) {
			return gorm.ErrDuplicatedKey
		}
	}
	for i := range sections {
		if err := m.Create(ctx, &sections[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockSectionRepo) GetByID(_ context.Context, id string) (*model.Section, error) {
	if s, ok := m.sections[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSectionRepo) List(_ context.Context, filter repository.SectionFilter) ([]model.Section, error) {
	var result []model.Section
	for _, s := range m.sections {
		if filter.SemesterID != "" && s.SemesterID != filter.SemesterID {
			continue
		}
		if filter.ProgramCode != "" && !strings.EqualFold(s.ProgramCode, filter.ProgramCode) {
			continue
		}
		if filter.YearLevel > 0 && s.YearLevel != filter.YearLevel {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockSectionRepo) ListNames(_ context.Context, programCode, semesterID string) ([]string, error) {
	var names []string
	for _, s := range m.sections {
		if strings.EqualFold(s.ProgramCode, programCode) && s.SemesterID == semesterID {
			names = append(names, s.Name)
		}
	}
	return names, nil
}

func (m *mockSectionRepo) Delete(_ context.Context, id string) error {
	delete(m.sections, id)
	return nil
}

// ── Mock SectionSubjectRepository ──

type mockSectionSubjectRepo struct {
	links    map[string]*model.SectionSubject
	sections *mockSectionRepo
	subjects *mockSubjectRepo
}

func newMockSectionSubjectRepo(sections *mockSectionRepo, subjects *mockSubjectRepo) *mockSectionSubjectRepo {
	return &mockSectionSubjectRepo{
		links:    make(map[string]*model.SectionSubject),
		sections: sections,
		subjects: subjects,
	}
}

func (m *mockSectionSubjectRepo) Create(_ context.Context, ss *model.SectionSubject) error {
	for _, l := range m.links {
		if l.SectionID == ss.SectionID && l.SubjectID == ss.SubjectID {
			return gorm.ErrDuplicatedKey
		}
	}
	m.links[ss.SectionSubjectID] = ss
	return nil
}

func (m *mockSectionSubjectRepo) GetBySectionAndSubject(_ context.Context, sectionID, subjectID string) (*model.SectionSubject, error) {
	for _, l := range m.links {
		if l.SectionID == sectionID && l.SubjectID == subjectID {
			return l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSectionSubjectRepo) ListBySemester(_ context.Context, semesterID string) ([]model.SectionSubject, error) {
	var result []model.SectionSubject
	for _, l := range m.links {
		if l.SemesterID != semesterID {
			continue
		}
		cp := *l
		cp.Section = m.sections.sections[l.SectionID]
		cp.Subject = m.subjects.subjects[l.SubjectID]
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SectionSubjectID < result[j].SectionSubjectID })
	return result, nil
}

// ── Mock ScheduleSlotRepository ──

type mockScheduleSlotRepo struct {
	slots     map[string]*model.ScheduleSlot
	links     *mockSectionSubjectRepo
	createErr error
	deleteErr error
}

func newMockScheduleSlotRepo(links *mockSectionSubjectRepo) *mockScheduleSlotRepo {
	return &mockScheduleSlotRepo{slots: make(map[string]*model.ScheduleSlot), links: links}
}

func (m *mockScheduleSlotRepo) Create(_ context.Context, slot *model.ScheduleSlot) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.slots[slot.ScheduleSlotID] = slot
	return nil
}

func (m *mockScheduleSlotRepo) GetByID(_ context.Context, id string) (*model.ScheduleSlot, error) {
	if s, ok := m.slots[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleSlotRepo) ListBySemester(_ context.Context, semesterID string) ([]model.ScheduleSlot, error) {
	var result []model.ScheduleSlot
	for _, s := range m.slots {
		if s.SemesterID == semesterID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ScheduleSlotID < result[j].ScheduleSlotID })
	return result, nil
}

func (m *mockScheduleSlotRepo) overlapping(q repository.OverlapQuery, match func(*model.ScheduleSlot) bool) (*model.ScheduleSlot, error) {
	for _, s := range m.slots {
		if s.SemesterID != q.SemesterID || s.DayOfWeek != q.DayOfWeek || s.ScheduleSlotID == q.ExcludeID {
			continue
		}
		// "HH:MM" 字符串可直接按字典序比较
		if s.StartTime < q.EndTime && s.EndTime > q.StartTime && match(s) {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleSlotRepo) FindSectionOverlap(_ context.Context, sectionID string, q repository.OverlapQuery) (*model.ScheduleSlot, error) {
	return m.overlapping(q, func(s *model.ScheduleSlot) bool {
		l, ok := m.links.links[s.SectionSubjectID]
		return ok && l.SectionID == sectionID
	})
}

func (m *mockScheduleSlotRepo) FindRoomOverlap(_ context.Context, roomName string, q repository.OverlapQuery) (*model.ScheduleSlot, error) {
	return m.overlapping(q, func(s *model.ScheduleSlot) bool {
		return s.RoomName != nil && *s.RoomName == roomName
	})
}

func (m *mockScheduleSlotRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.slots, id)
	return nil
}

func (m *mockScheduleSlotRepo) DeleteByRoom(_ context.Context, roomName string) (int64, error) {
	var n int64
	for id, s := range m.slots {
		if s.RoomName != nil && *s.RoomName == roomName {
			delete(m.slots, id)
			n++
		}
	}
	return n, nil
}

func (m *mockScheduleSlotRepo) CountByRoom(_ context.Context, roomName string) (int64, error) {
	var n int64
	for _, s := range m.slots {
		if s.RoomName != nil && *s.RoomName == roomName {
			n++
		}
	}
	return n, nil
}

func (m *mockScheduleSlotRepo) LockSemester(_ context.Context, _ string) error {
	return nil
}

// ── 组装 ──

type mockRepos struct {
	semesters *mockSemesterRepo
	rooms     *mockRoomRepo
	subjects  *mockSubjectRepo
	sections  *mockSectionRepo
	links     *mockSectionSubjectRepo
	slots     *mockScheduleSlotRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		semesters: newMockSemesterRepo(),
		rooms:     newMockRoomRepo(),
		subjects:  newMockSubjectRepo(),
		sections:  newMockSectionRepo(),
	}
	m.links = newMockSectionSubjectRepo(m.sections, m.subjects)
	m.slots = newMockScheduleSlotRepo(m.links)

	repo := &repository.Repository{
		Semester:       m.semesters,
		Room:           m.rooms,
		Subject:        m.subjects,
		Section:        m.sections,
		SectionSubject: m.links,
		ScheduleSlot:   m.slots,
	}
	return repo, m
}
