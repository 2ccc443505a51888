package timetable

import (
	"fmt"
	"sort"
	"sync"
)

// MutationKind 存储变更类型
type MutationKind int

const (
	MutationAddSlot MutationKind = iota + 1
	MutationRemoveSlot
	MutationAddAssignment
	MutationRemoveAssignment
	MutationHydrate
)

// Mutation 变更通知
type Mutation struct {
	Kind       MutationKind
	Slot       Slot
	Assignment Assignment
	Version    uint64
}

type assignmentKey struct {
	sectionID string
	subjectID string
}

type subscriber struct {
	id int
	fn func(Mutation)
}

// Store 排课存储：所有视图（班级视图、教室视图）共享的唯一数据源。
// 按班级 / 教室 / 星期维护增量索引，读操作只触及对应键下的排课。
type Store struct {
	mu sync.RWMutex

	slots     map[string]Slot
	bySection map[string][]string
	byRoom    map[string][]string
	byDay     map[Weekday][]string

	assignments          map[string]Assignment
	assignmentBySubject  map[assignmentKey]string
	assignmentsBySection map[string][]string

	version     uint64
	subscribers []subscriber
	nextSubID   int
}

// NewStore 创建空存储
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.slots = make(map[string]Slot)
	s.bySection = make(map[string][]string)
	s.byRoom = make(map[string][]string)
	s.byDay = make(map[Weekday][]string)
	s.assignments = make(map[string]Assignment)
	s.assignmentBySubject = make(map[assignmentKey]string)
	s.assignmentsBySection = make(map[string][]string)
}

// Subscribe 注册变更回调，返回取消函数。回调在释放锁之后按注册顺序执行。
func (s *Store) Subscribe(fn func(Mutation)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Version 每次变更自增
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// commit 在持锁状态下调用：递增版本并返回待通知的回调快照
func (s *Store) commit(m *Mutation) []func(Mutation) {
	s.version++
	m.Version = s.version
	fns := make([]func(Mutation), 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		fns = append(fns, sub.fn)
	}
	return fns
}

func notify(fns []func(Mutation), m Mutation) {
	for _, fn := range fns {
		fn(m)
	}
}

// ════════════════════════════════════════════════════════════
// 课程分配
// ════════════════════════════════════════════════════════════

// AddAssignment 新增分配；同一班级同一课程只能有一条
func (s *Store) AddAssignment(a Assignment) error {
	if a.ID == "" || a.SectionID == "" || a.SubjectID == "" {
		return fmt.Errorf("课程分配字段不完整: %+v", a)
	}
	s.mu.Lock()
	key := assignmentKey{a.SectionID, a.SubjectID}
	if existing, ok := s.assignmentBySubject[key]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s 已存在分配 %s", ErrDuplicateAssignment, a.SubjectCode, existing)
	}
	if _, ok := s.assignments[a.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateAssignment, a.ID)
	}
	s.assignments[a.ID] = a
	s.assignmentBySubject[key] = a.ID
	s.assignmentsBySection[a.SectionID] = append(s.assignmentsBySection[a.SectionID], a.ID)

	m := Mutation{Kind: MutationAddAssignment, Assignment: a}
	fns := s.commit(&m)
	s.mu.Unlock()

	notify(fns, m)
	return nil
}

// RemoveAssignment 删除没有排课的分配（仅用于放置失败时回滚新建的分配）
func (s *Store) RemoveAssignment(id string) bool {
	s.mu.Lock()
	a, ok := s.assignments[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	for _, slotID := range s.bySection[a.SectionID] {
		if s.slots[slotID].AssignmentID == id {
			s.mu.Unlock()
			return false
		}
	}
	s.dropAssignment(a)

	m := Mutation{Kind: MutationRemoveAssignment, Assignment: a}
	fns := s.commit(&m)
	s.mu.Unlock()

	notify(fns, m)
	return true
}

func (s *Store) dropAssignment(a Assignment) {
	delete(s.assignments, a.ID)
	delete(s.assignmentBySubject, assignmentKey{a.SectionID, a.SubjectID})
	s.assignmentsBySection[a.SectionID] = removeID(s.assignmentsBySection[a.SectionID], a.ID)
	if len(s.assignmentsBySection[a.SectionID]) == 0 {
		delete(s.assignmentsBySection, a.SectionID)
	}
}

// Assignment 按 ID 查询分配
func (s *Store) Assignment(id string) (Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	return a, ok
}

// AssignmentFor 查询班级下某课程的分配
func (s *Store) AssignmentFor(sectionID, subjectID string) (Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.assignmentBySubject[assignmentKey{sectionID, subjectID}]
	if !ok {
		return Assignment{}, false
	}
	return s.assignments[id], true
}

// AssignmentsForSection 班级的全部分配（含未排课的），按课程代码排序
func (s *Store) AssignmentsForSection(sectionID string) []Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.assignmentsBySection[sectionID]
	out := make([]Assignment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.assignments[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubjectCode != out[j].SubjectCode {
			return out[i].SubjectCode < out[j].SubjectCode
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ════════════════════════════════════════════════════════════
// 排课
// ════════════════════════════════════════════════════════════

// Add 新增排课。区间必须合法、分配必须已存在；冲突校验由 Detector 负责。
func (s *Store) Add(slot Slot) error {
	if slot.ID == "" {
		return fmt.Errorf("排课缺少 ID")
	}
	if !slot.Interval.Valid() {
		return fmt.Errorf("%w: 排课 %s", ErrInvalidInterval, slot.ID)
	}

	s.mu.Lock()
	a, ok := s.assignments[slot.AssignmentID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAssignment, slot.AssignmentID)
	}
	if _, exists := s.slots[slot.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateSlot, slot.ID)
	}
	slot = slot.withAssignment(a)
	s.index(slot)

	m := Mutation{Kind: MutationAddSlot, Slot: slot}
	fns := s.commit(&m)
	s.mu.Unlock()

	notify(fns, m)
	return nil
}

func (s *Store) index(slot Slot) {
	s.slots[slot.ID] = slot
	s.bySection[slot.SectionID] = append(s.bySection[slot.SectionID], slot.ID)
	if slot.HasRoom() {
		s.byRoom[slot.Room] = append(s.byRoom[slot.Room], slot.ID)
	}
	day := slot.Interval.Day()
	s.byDay[day] = append(s.byDay[day], slot.ID)
}

func (s *Store) unindex(slot Slot) {
	delete(s.slots, slot.ID)
	s.bySection[slot.SectionID] = removeID(s.bySection[slot.SectionID], slot.ID)
	if len(s.bySection[slot.SectionID]) == 0 {
		delete(s.bySection, slot.SectionID)
	}
	if slot.HasRoom() {
		s.byRoom[slot.Room] = removeID(s.byRoom[slot.Room], slot.ID)
		if len(s.byRoom[slot.Room]) == 0 {
			delete(s.byRoom, slot.Room)
		}
	}
	day := slot.Interval.Day()
	s.byDay[day] = removeID(s.byDay[day], slot.ID)
	if len(s.byDay[day]) == 0 {
		delete(s.byDay, day)
	}
}

// Remove 删除排课；不存在时为空操作，返回 false
func (s *Store) Remove(id string) (Slot, bool) {
	s.mu.Lock()
	slot, ok := s.slots[id]
	if !ok {
		s.mu.Unlock()
		return Slot{}, false
	}
	s.unindex(slot)

	m := Mutation{Kind: MutationRemoveSlot, Slot: slot}
	fns := s.commit(&m)
	s.mu.Unlock()

	notify(fns, m)
	return slot, true
}

// RemoveSection 级联删除班级的全部排课与分配
func (s *Store) RemoveSection(sectionID string) []Slot {
	s.mu.Lock()
	var removed []Slot
	for _, id := range append([]string(nil), s.bySection[sectionID]...) {
		slot := s.slots[id]
		s.unindex(slot)
		removed = append(removed, slot)
	}
	var dropped []Assignment
	for _, id := range append([]string(nil), s.assignmentsBySection[sectionID]...) {
		a := s.assignments[id]
		s.dropAssignment(a)
		dropped = append(dropped, a)
	}

	var pending []Mutation
	var fns []func(Mutation)
	for _, slot := range removed {
		m := Mutation{Kind: MutationRemoveSlot, Slot: slot}
		fns = s.commit(&m)
		pending = append(pending, m)
	}
	for _, a := range dropped {
		m := Mutation{Kind: MutationRemoveAssignment, Assignment: a}
		fns = s.commit(&m)
		pending = append(pending, m)
	}
	s.mu.Unlock()

	for _, m := range pending {
		notify(fns, m)
	}
	sortSlots(removed)
	return removed
}

// RemoveRoom 级联删除教室的全部排课
func (s *Store) RemoveRoom(room string) []Slot {
	s.mu.Lock()
	var removed []Slot
	var pending []Mutation
	var fns []func(Mutation)
	for _, id := range append([]string(nil), s.byRoom[room]...) {
		slot := s.slots[id]
		s.unindex(slot)
		removed = append(removed, slot)
		m := Mutation{Kind: MutationRemoveSlot, Slot: slot}
		fns = s.commit(&m)
		pending = append(pending, m)
	}
	s.mu.Unlock()

	for _, m := range pending {
		notify(fns, m)
	}
	sortSlots(removed)
	return removed
}

// Slot 按 ID 查询排课
func (s *Store) Slot(id string) (Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[id]
	return slot, ok
}

// SlotsForSection 班级的全部排课
func (s *Store) SlotsForSection(sectionID string) []Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.bySection[sectionID])
}

// SlotsForRoom 教室的全部排课
func (s *Store) SlotsForRoom(room string) []Slot {
	if room == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byRoom[room])
}

// SlotsForDay 某一天的全部排课
func (s *Store) SlotsForDay(day Weekday) []Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byDay[day])
}

// Slots 全部排课
func (s *Store) Slots() []Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		out = append(out, slot)
	}
	sortSlots(out)
	return out
}

// Sections 有排课的班级
func (s *Store) Sections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.bySection)
}

// Rooms 有排课的教室
func (s *Store) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.byRoom)
}

func (s *Store) collect(ids []string) []Slot {
	out := make([]Slot, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.slots[id])
	}
	sortSlots(out)
	return out
}

// Hydrate 用远端加载的数据整体替换存储内容；任一记录非法时不做任何修改
func (s *Store) Hydrate(assignments []Assignment, records []SlotRecord) error {
	next := NewStore()
	for _, a := range assignments {
		key := assignmentKey{a.SectionID, a.SubjectID}
		if _, dup := next.assignmentBySubject[key]; dup {
			return fmt.Errorf("%w: 班级 %s 课程 %s", ErrDuplicateAssignment, a.SectionID, a.SubjectID)
		}
		next.assignments[a.ID] = a
		next.assignmentBySubject[key] = a.ID
		next.assignmentsBySection[a.SectionID] = append(next.assignmentsBySection[a.SectionID], a.ID)
	}
	for i, rec := range records {
		slot, err := next.slotFromRecord(rec)
		if err != nil {
			return fmt.Errorf("第 %d 条排课记录: %w", i+1, err)
		}
		if _, dup := next.slots[slot.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateSlot, slot.ID)
		}
		next.index(slot)
	}

	s.mu.Lock()
	s.slots, s.bySection, s.byRoom, s.byDay = next.slots, next.bySection, next.byRoom, next.byDay
	s.assignments, s.assignmentBySubject, s.assignmentsBySection =
		next.assignments, next.assignmentBySubject, next.assignmentsBySection
	m := Mutation{Kind: MutationHydrate}
	fns := s.commit(&m)
	s.mu.Unlock()

	notify(fns, m)
	return nil
}

// SlotFromRecord 将交换记录还原为排课（需分配已存在）
func (s *Store) SlotFromRecord(rec SlotRecord) (Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slotFromRecord(rec)
}

func (s *Store) slotFromRecord(rec SlotRecord) (Slot, error) {
	a, ok := s.assignments[rec.AssignmentID]
	if !ok {
		return Slot{}, fmt.Errorf("%w: %s", ErrUnknownAssignment, rec.AssignmentID)
	}
	iv, err := ParseInterval(rec.Day, rec.StartTime, rec.EndTime)
	if err != nil {
		return Slot{}, err
	}
	if rec.ID == "" {
		return Slot{}, fmt.Errorf("排课记录缺少 ID")
	}
	slot := Slot{ID: rec.ID, Interval: iv}
	if rec.RoomName != nil {
		slot.Room = *rec.RoomName
	}
	return slot.withAssignment(a), nil
}

// ── 辅助函数 ──

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i].Interval, slots[j].Interval
		if c := a.StartTime().Compare(b.StartTime()); c != 0 {
			return c < 0
		}
		return slots[i].ID < slots[j].ID
	})
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
