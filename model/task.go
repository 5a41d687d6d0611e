package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority 任务优先级
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank 返回排序权重，high 最小
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Valid 判断是否为已知优先级
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// ParsePriority 解析优先级，空值或未知值返回 medium
func ParsePriority(s string) Priority {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return PriorityMedium
	}
	return p
}

// Task 表示一个待办任务
type Task struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Completed bool     `json:"completed"`
	DueDate   Date     `json:"dueDate"`
	Priority  Priority `json:"priority"`
	CreatedAt int64    `json:"createdAt,omitempty"` // unix 毫秒，0 表示缺失
	Order     int      `json:"order,omitempty"`
}

// NewTask 创建一个新的任务
func NewTask(title string, due Date, priority Priority, now time.Time) Task {
	if !priority.Valid() {
		priority = PriorityMedium
	}
	return Task{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		DueDate:   due,
		Priority:  priority,
		CreatedAt: now.UnixMilli(),
	}
}

// UnmarshalJSON 兼容旧快照：数字 id、缺失的 priority
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var raw struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Task(raw.plain)
	t.ID = ""
	if len(raw.ID) > 0 && string(raw.ID) != "null" {
		var s string
		if err := json.Unmarshal(raw.ID, &s); err == nil {
			t.ID = s
		} else {
			var n json.Number
			if err := json.Unmarshal(raw.ID, &n); err != nil {
				return fmt.Errorf("invalid task id %s: %w", raw.ID, err)
			}
			t.ID = n.String()
		}
	}
	t.Priority = ParsePriority(string(t.Priority))
	return nil
}

// Date 不带时间部分的日历日期，零值表示没有截止日期
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

// DateOf 截取 t 的日期部分（按 t 所在时区）
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDate 根据年月日构造日期
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate 解析 YYYY-MM-DD 或 RFC3339 时间，空字符串返回零值
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// IsZero 是否没有日期
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Before 严格早于
func (d Date) Before(o Date) bool {
	return d.t.Before(o.t)
}

// Equal 同一天
func (d Date) Equal(o Date) bool {
	return d.t.Equal(o.t)
}

// Time 返回当天 UTC 零点
func (d Date) Time() time.Time {
	return d.t
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// MarshalJSON 零值编码为空字符串
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON 接受 null、空字符串、YYYY-MM-DD 和 RFC3339
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
