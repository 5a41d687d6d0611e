package engine

import (
	"strings"
	"time"
	"unicode/utf8"

	"tasklist/model"
)

const (
	MinTitleLength = 3
	MaxTitleLength = 50
)

// Strictness 标题校验级别
type Strictness string

const (
	// StrictnessStrict 非空、长度 [3,50]、不区分大小写去重
	StrictnessStrict Strictness = "strict"
	// StrictnessMinimal 只检查非空
	StrictnessMinimal Strictness = "minimal"
)

// NewTaskInput 新建任务的输入
type NewTaskInput struct {
	Title    string
	DueDate  model.Date
	Priority model.Priority
}

// AddOptions 控制 Add 的校验和时间来源
type AddOptions struct {
	Strictness Strictness
	Now        time.Time
}

// ValidateTitle 按顺序校验标题，遇到第一个失败即返回
func ValidateTitle(title string, existing []model.Task, strictness Strictness) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return &ValidationError{Reason: ReasonTitleRequired}
	}
	if strictness == StrictnessMinimal {
		return nil
	}

	n := utf8.RuneCountInString(trimmed)
	if n < MinTitleLength {
		return &ValidationError{Reason: ReasonTooShort}
	}
	if n > MaxTitleLength {
		return &ValidationError{Reason: ReasonTooLong}
	}
	for _, t := range existing {
		if strings.EqualFold(strings.TrimSpace(t.Title), trimmed) {
			return &ValidationError{Reason: ReasonDuplicate}
		}
	}
	return nil
}

// NextOrder 返回当前最大 order + 1，空集合返回 1
func NextOrder(tasks []model.Task) int {
	highest := 0
	for _, t := range tasks {
		if t.Order > highest {
			highest = t.Order
		}
	}
	return highest + 1
}

// Add 校验并追加新任务；校验失败时原样返回 existing
func Add(existing []model.Task, in NewTaskInput, opts AddOptions) ([]model.Task, model.Task, error) {
	if err := ValidateTitle(in.Title, existing, opts.Strictness); err != nil {
		return existing, model.Task{}, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	task := model.NewTask(in.Title, in.DueDate, in.Priority, now)
	task.Order = NextOrder(existing)

	out := make([]model.Task, 0, len(existing)+1)
	out = append(out, existing...)
	out = append(out, task)
	return out, task, nil
}

func indexOf(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func replaceAt(tasks []model.Task, i int, t model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	out[i] = t
	return out
}

// Toggle 翻转指定任务的完成状态
func Toggle(existing []model.Task, id string) ([]model.Task, model.Task, error) {
	i := indexOf(existing, id)
	if i < 0 {
		return existing, model.Task{}, &NotFoundError{ID: id}
	}
	t := existing[i]
	t.Completed = !t.Completed
	return replaceAt(existing, i, t), t, nil
}

// Edit 修改标题；去空白后为空则放弃修改，changed 为 false
func Edit(existing []model.Task, id, title string) (out []model.Task, changed bool, err error) {
	i := indexOf(existing, id)
	if i < 0 {
		return existing, false, &NotFoundError{ID: id}
	}
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return existing, false, nil
	}
	t := existing[i]
	t.Title = trimmed
	return replaceAt(existing, i, t), true, nil
}

// Delete 删除指定任务，不存在时不做任何事
func Delete(existing []model.Task, id string) ([]model.Task, bool) {
	i := indexOf(existing, id)
	if i < 0 {
		return existing, false
	}
	out := make([]model.Task, 0, len(existing)-1)
	out = append(out, existing[:i]...)
	out = append(out, existing[i+1:]...)
	return out, true
}

// ClearCompleted 删除所有已完成任务，返回删除数量
func ClearCompleted(existing []model.Task) ([]model.Task, int) {
	out := make([]model.Task, 0, len(existing))
	for _, t := range existing {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out, len(existing) - len(out)
}

// Reorder 把 movedID 移到 targetID 当前所在的位置，然后给所有任务重新编号（从 1 开始）
func Reorder(existing []model.Task, movedID, targetID string) ([]model.Task, bool) {
	if movedID == targetID {
		return existing, false
	}
	from, to := indexOf(existing, movedID), indexOf(existing, targetID)
	if from < 0 || to < 0 {
		return existing, false
	}

	out := make([]model.Task, 0, len(existing))
	moved := existing[from]
	for i, t := range existing {
		if i == from {
			continue
		}
		if i == to && from > to {
			out = append(out, moved)
		}
		out = append(out, t)
		if i == to && from < to {
			out = append(out, moved)
		}
	}
	Renumber(out)
	return out, true
}

// Renumber 按当前位置重写 order，原地修改
func Renumber(tasks []model.Task) {
	for i := range tasks {
		tasks[i].Order = i + 1
	}
}
