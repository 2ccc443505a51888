package timetable

// ConflictKind 冲突类型
type ConflictKind string

const (
	ConflictNone    ConflictKind = ""
	ConflictSection ConflictKind = "section"
	ConflictRoom    ConflictKind = "room"
)

// ConflictResult 放置校验结果：Clear / SectionConflict / RoomConflict
type ConflictResult struct {
	Kind     ConflictKind
	Existing Slot
}

// Clear 无冲突
func (r ConflictResult) Clear() bool { return r.Kind == ConflictNone }

// Err 有冲突时返回 *ConflictError，否则为 nil
func (r ConflictResult) Err() error {
	if r.Clear() {
		return nil
	}
	return &ConflictError{Kind: r.Kind, Existing: r.Existing}
}

// Report 转为界面展示用的冲突报告
func (r ConflictResult) Report() *ConflictReport {
	if r.Clear() {
		return nil
	}
	return NewConflictReport(r.Kind, r.Existing)
}

// NewConflictReport 构造冲突报告，包含冲突课程、班级、教室与时间段
func NewConflictReport(kind ConflictKind, existing Slot) *ConflictReport {
	return &ConflictReport{
		Kind:            kind,
		ConflictingSlot: existing.Record(),
		Subject:         existing.SubjectCode,
		Section:         existing.SectionName,
		Room:            existing.Room,
		TimeRange:       existing.Interval.String(),
	}
}

// Detector 冲突检测器：纯查询，不修改存储
type Detector struct {
	store *Store
}

// NewDetector 创建检测器
func NewDetector(store *Store) *Detector {
	return &Detector{store: store}
}

// Check 校验候选排课。先查班级冲突，再查教室冲突（未分配教室时跳过）；
// 两者同时存在时报告班级冲突。
func (d *Detector) Check(candidate Slot) ConflictResult {
	for _, existing := range d.store.SlotsForSection(candidate.SectionID) {
		if existing.ID == candidate.ID {
			continue
		}
		if Overlaps(existing.Interval, candidate.Interval) {
			return ConflictResult{Kind: ConflictSection, Existing: existing}
		}
	}
	if !candidate.HasRoom() {
		return ConflictResult{}
	}
	for _, existing := range d.store.SlotsForRoom(candidate.Room) {
		if existing.ID == candidate.ID {
			continue
		}
		if Overlaps(existing.Interval, candidate.Interval) {
			return ConflictResult{Kind: ConflictRoom, Existing: existing}
		}
	}
	return ConflictResult{}
}

// Collision 审计发现的一对重叠排课
type Collision struct {
	Kind  ConflictKind
	Key   string // 班级 ID 或教室名
	First Slot
	Other Slot
}

// Audit 全量扫描：找出任意班级或教室内重叠的排课对（数据完整性检查）
func (d *Detector) Audit() []Collision {
	var out []Collision
	for _, section := range d.store.Sections() {
		out = append(out, sweep(ConflictSection, section, d.store.SlotsForSection(section))...)
	}
	for _, room := range d.store.Rooms() {
		out = append(out, sweep(ConflictRoom, room, d.store.SlotsForRoom(room))...)
	}
	return out
}

// sweep 输入已按 (星期, 开始时间) 排序；对每个排课只向后比较到不再重叠为止
func sweep(kind ConflictKind, key string, slots []Slot) []Collision {
	var out []Collision
	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			a, b := slots[i].Interval, slots[j].Interval
			if b.Day() != a.Day() || b.Start() >= a.End() {
				break
			}
			out = append(out, Collision{Kind: kind, Key: key, First: slots[i], Other: slots[j]})
		}
	}
	return out
}
