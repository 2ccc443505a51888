package timetable

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday 星期（ISO：1=周一 … 7=周日，与数据库 day_of_week 一致）
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// AllWeekdays 完整一周
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayNames = [...]string{"", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Valid 是否为合法星期
func (d Weekday) Valid() bool { return d >= Monday && d <= Sunday }

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// ParseWeekday 解析星期：支持 1-7、英文全称与三字母缩写，大小写不敏感
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if d := Weekday(n); d.Valid() {
			return d, nil
		}
		return 0, fmt.Errorf("无效的星期 %q", s)
	}
	for i := Monday; i <= Sunday; i++ {
		name := weekdayNames[i]
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("无效的星期 %q", s)
}

// ClockTime 一天内的时刻，单位为自零点起的分钟数
type ClockTime int

// MinutesPerDay 一天的分钟数
const MinutesPerDay = 24 * 60

// Clock 由时、分构造 ClockTime
func Clock(hour, minute int) ClockTime { return ClockTime(hour*60 + minute) }

// ParseClock 解析 "HH:MM"，兼容 PostgreSQL time 列返回的 "HH:MM:SS"
func ParseClock(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("无效的时间格式 %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("无效的时间格式 %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("无效的时间格式 %q", s)
	}
	c := Clock(h, m)
	if c > MinutesPerDay {
		return 0, fmt.Errorf("无效的时间格式 %q", s)
	}
	return c, nil
}

// Hour 小时部分
func (c ClockTime) Hour() int { return int(c) / 60 }

// Minute 分钟部分
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Add 时刻偏移，不跨日（超出部分截断到 24:00）
func (c ClockTime) Add(d time.Duration) ClockTime {
	n := c + ClockTime(d/time.Minute)
	if n > MinutesPerDay {
		return MinutesPerDay
	}
	if n < 0 {
		return 0
	}
	return n
}

// WeeklyTime 周循环上的一个时间点
type WeeklyTime struct {
	Day   Weekday
	Clock ClockTime
}

// Compare 先比较星期，再比较时刻；返回 -1 / 0 / 1
func (w WeeklyTime) Compare(o WeeklyTime) int {
	switch {
	case w.Day < o.Day:
		return -1
	case w.Day > o.Day:
		return 1
	case w.Clock < o.Clock:
		return -1
	case w.Clock > o.Clock:
		return 1
	}
	return 0
}

// Before 是否早于 o
func (w WeeklyTime) Before(o WeeklyTime) bool { return w.Compare(o) < 0 }

func (w WeeklyTime) String() string { return w.Day.String() + " " + w.Clock.String() }

// Interval 同一天内的半开区间 [start, end)。
// 只能通过 NewInterval / ParseInterval 构造，保证 end > start。
type Interval struct {
	day   Weekday
	start ClockTime
	end   ClockTime
}

// NewInterval 构造区间，校验星期合法且时长为正
func NewInterval(day Weekday, start, end ClockTime) (Interval, error) {
	if !day.Valid() {
		return Interval{}, fmt.Errorf("%w: 星期 %d 不合法", ErrInvalidInterval, int(day))
	}
	if start < 0 || end > MinutesPerDay {
		return Interval{}, fmt.Errorf("%w: %s-%s 超出一天范围", ErrInvalidInterval, start, end)
	}
	if end <= start {
		return Interval{}, fmt.Errorf("%w: 结束时间 %s 不晚于开始时间 %s", ErrInvalidInterval, end, start)
	}
	return Interval{day: day, start: start, end: end}, nil
}

// ParseInterval 由字符串形式的星期与起止时间构造区间
func ParseInterval(day, start, end string) (Interval, error) {
	d, err := ParseWeekday(day)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	return NewInterval(d, s, e)
}

// MustInterval 仅用于常量化的已知合法区间（测试、默认值）
func MustInterval(day Weekday, start, end ClockTime) Interval {
	iv, err := NewInterval(day, start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

func (iv Interval) Day() Weekday     { return iv.day }
func (iv Interval) Start() ClockTime { return iv.start }
func (iv Interval) End() ClockTime   { return iv.end }

// Valid 零值区间不合法
func (iv Interval) Valid() bool { return iv.day.Valid() && iv.end > iv.start }

// StartTime 区间起点
func (iv Interval) StartTime() WeeklyTime { return WeeklyTime{Day: iv.day, Clock: iv.start} }

// EndTime 区间终点
func (iv Interval) EndTime() WeeklyTime { return WeeklyTime{Day: iv.day, Clock: iv.end} }

// Duration 区间时长（派生值）
func (iv Interval) Duration() time.Duration {
	return time.Duration(iv.end-iv.start) * time.Minute
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s %s-%s", iv.day, iv.start, iv.end)
}

// Overlaps 同一天且 a.start < b.end && b.start < a.end 时重叠；端点相接不算重叠
func Overlaps(a, b Interval) bool {
	if a.day != b.day {
		return false
	}
	return a.start < b.end && b.start < a.end
}

// TicksBetween 区间占用的网格行数，不足一格向上取整
func TicksBetween(start, end ClockTime, tick time.Duration) (int, error) {
	if end <= start {
		return 0, fmt.Errorf("%w: 结束时间 %s 不晚于开始时间 %s", ErrInvalidInterval, end, start)
	}
	step := int(tick / time.Minute)
	if step <= 0 {
		return 0, fmt.Errorf("%w: 时间粒度 %s 不合法", ErrInvalidInterval, tick)
	}
	span := int(end - start)
	return (span + step - 1) / step, nil
}
