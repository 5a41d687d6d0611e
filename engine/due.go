package engine

import (
	"time"

	"tasklist/model"
)

// DueState 截止日期分类
type DueState string

const (
	DueNone     DueState = "none"
	DueOverdue  DueState = "overdue"
	DueToday    DueState = "today"
	DueUpcoming DueState = "upcoming"
)

// DueStatus 只比较日期部分
func DueStatus(t model.Task, today time.Time) DueState {
	if t.DueDate.IsZero() {
		return DueNone
	}
	d := model.DateOf(today)
	switch {
	case t.DueDate.Before(d):
		return DueOverdue
	case t.DueDate.Equal(d):
		return DueToday
	default:
		return DueUpcoming
	}
}

func IsOverdue(t model.Task, today time.Time) bool {
	return DueStatus(t, today) == DueOverdue
}
