package timetable

import (
	"fmt"
	"slices"
	"time"
)

// GridConfig 课表网格配置：列为星期，行为离散时间格
type GridConfig struct {
	Days  []Weekday
	Open  ClockTime
	Close ClockTime
	Tick  time.Duration
}

// DefaultGridConfig 默认：整周 7 天，07:00-21:00，每格 1 小时
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Days:  append([]Weekday(nil), AllWeekdays...),
		Open:  Clock(7, 0),
		Close: Clock(21, 0),
		Tick:  time.Hour,
	}
}

// Validate 校验网格配置
func (c GridConfig) Validate() error {
	if len(c.Days) == 0 {
		return fmt.Errorf("%w: 至少需要一天", ErrInvalidGridConfig)
	}
	seen := make(map[Weekday]bool, len(c.Days))
	for _, d := range c.Days {
		if !d.Valid() || seen[d] {
			return fmt.Errorf("%w: 星期 %d 非法或重复", ErrInvalidGridConfig, int(d))
		}
		seen[d] = true
	}
	if c.Tick < time.Minute || c.Tick%time.Minute != 0 {
		return fmt.Errorf("%w: 时间粒度必须为整分钟，当前 %s", ErrInvalidGridConfig, c.Tick)
	}
	if c.Open < 0 || c.Close > MinutesPerDay || c.Close <= c.Open {
		return fmt.Errorf("%w: 时间窗口 %s-%s 不合法", ErrInvalidGridConfig, c.Open, c.Close)
	}
	return nil
}

func (c GridConfig) step() int { return int(c.Tick / time.Minute) }

// TickCount 网格行数（窗口不是粒度整数倍时最后一格不完整）
func (c GridConfig) TickCount() int {
	step := c.step()
	return (int(c.Close-c.Open) + step - 1) / step
}

// TickStart 第 tick 格的开始时刻
func (c GridConfig) TickStart(tick int) ClockTime {
	return c.Open + ClockTime(tick*c.step())
}

// ScopeKind 投影范围类型
type ScopeKind string

const (
	ScopeSection ScopeKind = "section"
	ScopeRoom    ScopeKind = "room"
)

// Scope 投影范围：某个班级或某个教室
type Scope struct {
	Kind ScopeKind
	Key  string
}

// SectionScope 班级视图
func SectionScope(sectionID string) Scope { return Scope{Kind: ScopeSection, Key: sectionID} }

// RoomScope 教室视图
func RoomScope(room string) Scope { return Scope{Kind: ScopeRoom, Key: room} }

func (s Scope) String() string { return string(s.Kind) + ":" + s.Key }

// CellState 单元格状态
type CellState int

const (
	CellEmpty CellState = iota
	CellAnchor
	CellSuppressed
)

func (s CellState) String() string {
	switch s {
	case CellAnchor:
		return "anchor"
	case CellSuppressed:
		return "suppressed"
	default:
		return "empty"
	}
}

// Cell 网格单元格。锚点格携带完整排课与跨行数；被覆盖格只记录锚点所在行。
type Cell struct {
	Day        Weekday
	Tick       int
	Start      ClockTime
	State      CellState
	Span       int
	Slot       *Slot
	AnchorTick int
}

// Grid 课表投影结果
type Grid struct {
	Scope   Scope
	Config  GridConfig
	Version uint64
	// Hidden 落在窗口之外或不在配置星期内的排课
	Hidden []Slot
	// Crowded 与相邻排课不重叠、但当前粒度下落在同一格而无法单独占格的排课
	Crowded []Slot

	cells    [][]Cell // [tick][day]
	dayIndex map[Weekday]int
}

// Project 将存储中某个范围的排课投影为网格。
// 上游冲突校验保证同一列不会重叠；真正重叠的碰撞立即返回 *IntegrityError，不做合并或丢弃。
// 不重叠但粒度过粗落在同一格的排课先到先占格，其余列入 Crowded。
func Project(store *Store, scope Scope, cfg GridConfig) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slots, err := scopeSlots(store, scope)
	if err != nil {
		return nil, err
	}

	g := newGrid(scope, cfg)
	g.Version = store.Version()

	for i := range slots {
		if err := g.place(slots[i]); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func newGrid(scope Scope, cfg GridConfig) *Grid {
	g := &Grid{
		Scope:    scope,
		Config:   cfg,
		dayIndex: make(map[Weekday]int, len(cfg.Days)),
	}
	for i, d := range cfg.Days {
		g.dayIndex[d] = i
	}
	ticks := cfg.TickCount()
	g.cells = make([][]Cell, ticks)
	for t := 0; t < ticks; t++ {
		row := make([]Cell, len(cfg.Days))
		for i, d := range cfg.Days {
			row[i] = Cell{Day: d, Tick: t, Start: cfg.TickStart(t)}
		}
		g.cells[t] = row
	}
	return g
}

func (g *Grid) place(slot Slot) error {
	col, ok := g.dayIndex[slot.Interval.Day()]
	if !ok {
		g.Hidden = append(g.Hidden, slot)
		return nil
	}

	window := int(g.Config.Close - g.Config.Open)
	startOff := int(slot.Interval.Start() - g.Config.Open)
	endOff := int(slot.Interval.End() - g.Config.Open)
	if endOff <= 0 || startOff >= window {
		g.Hidden = append(g.Hidden, slot)
		return nil
	}
	startOff = max(startOff, 0)
	endOff = min(endOff, window)

	step := g.Config.step()
	anchor := startOff / step
	endTick := (endOff + step - 1) / step
	span := endTick - anchor

	crowded := false
	for t := anchor; t < endTick; t++ {
		if g.cells[t][col].State == CellEmpty {
			continue
		}
		other := g.occupant(t, col)
		if Overlaps(other.Interval, slot.Interval) {
			return &IntegrityError{Day: slot.Interval.Day(), Tick: t, Slot: slot, Others: other}
		}
		crowded = true
	}
	if crowded {
		g.Crowded = append(g.Crowded, slot)
		return nil
	}

	s := slot
	g.cells[anchor][col].State = CellAnchor
	g.cells[anchor][col].Span = span
	g.cells[anchor][col].Slot = &s
	g.cells[anchor][col].AnchorTick = anchor
	for t := anchor + 1; t < endTick; t++ {
		g.cells[t][col].State = CellSuppressed
		g.cells[t][col].AnchorTick = anchor
	}
	return nil
}

func (g *Grid) occupant(tick, col int) Slot {
	c := g.cells[tick][col]
	return *g.cells[c.AnchorTick][col].Slot
}

// TickCount 行数
func (g *Grid) TickCount() int { return len(g.cells) }

// Days 列（星期）
func (g *Grid) Days() []Weekday { return g.Config.Days }

// Cell 按 (星期, 行) 取单元格
func (g *Grid) Cell(day Weekday, tick int) (Cell, bool) {
	col, ok := g.dayIndex[day]
	if !ok || tick < 0 || tick >= len(g.cells) {
		return Cell{}, false
	}
	return g.cells[tick][col], true
}

// Rows 按行返回全部单元格（副本）
func (g *Grid) Rows() [][]Cell {
	out := make([][]Cell, len(g.cells))
	for i, row := range g.cells {
		out[i] = append([]Cell(nil), row...)
	}
	return out
}

// Anchors 全部锚点格，按行、列顺序
func (g *Grid) Anchors() []Cell {
	var out []Cell
	for _, row := range g.cells {
		for _, c := range row {
			if c.State == CellAnchor {
				out = append(out, c)
			}
		}
	}
	return out
}

// TickOf 时刻所在的行
func (g *Grid) TickOf(c ClockTime) (int, bool) {
	if c < g.Config.Open || c >= g.Config.Close {
		return 0, false
	}
	return int(c-g.Config.Open) / g.Config.step(), true
}

// DropTarget 将拖放目标 (星期, 行) 解析为时间点。
// 只看目标格本身：范围内任何排课与该格的时间段相交即不可放置，其他格子的显示状态不影响结果。
func DropTarget(store *Store, scope Scope, cfg GridConfig, day Weekday, tick int) (WeeklyTime, error) {
	if err := cfg.Validate(); err != nil {
		return WeeklyTime{}, err
	}
	if !slices.Contains(cfg.Days, day) || tick < 0 || tick >= cfg.TickCount() {
		return WeeklyTime{}, fmt.Errorf("%w: %s 第%d格超出网格范围", ErrCellNotDroppable, day, tick)
	}
	slots, err := scopeSlots(store, scope)
	if err != nil {
		return WeeklyTime{}, err
	}

	start := cfg.TickStart(tick)
	cell, err := NewInterval(day, start, min(cfg.TickStart(tick+1), cfg.Close))
	if err != nil {
		return WeeklyTime{}, err
	}
	for _, slot := range slots {
		if Overlaps(slot.Interval, cell) {
			return WeeklyTime{}, fmt.Errorf("%w: %s 第%d格已被 %s 占用", ErrCellNotDroppable, day, tick, slot.Interval)
		}
	}
	return WeeklyTime{Day: day, Clock: start}, nil
}

func scopeSlots(store *Store, scope Scope) ([]Slot, error) {
	switch scope.Kind {
	case ScopeSection:
		return store.SlotsForSection(scope.Key), nil
	case ScopeRoom:
		return store.SlotsForRoom(scope.Key), nil
	}
	return nil, fmt.Errorf("未知的投影范围 %q", scope.Kind)
}
