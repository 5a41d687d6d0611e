package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"tasklist/model"
)

// StatusFilter 完成状态过滤
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusActive    StatusFilter = "active"
	StatusCompleted StatusFilter = "completed"
)

// PriorityAll 不按优先级过滤
const PriorityAll = "all"

// SortKey 视图排序字段
type SortKey string

const (
	SortNone     SortKey = ""
	SortNewest   SortKey = "newest"
	SortOldest   SortKey = "oldest"
	SortPriority SortKey = "priority"
	SortDueDate  SortKey = "dueDate"
	SortOrder    SortKey = "order"
)

// ViewOptions 派生视图的参数，零值表示不过滤、不排序
type ViewOptions struct {
	PriorityFilter string
	StatusFilter   StatusFilter
	SearchTerm     string
	SortKey        SortKey
	// MissingDueFirst 为 true 时没有截止日期的任务排在最前
	MissingDueFirst bool
}

// ParseSortKey 解析排序字段，未知值返回 SortNone
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case SortNewest, SortOldest, SortPriority, SortDueDate, SortOrder:
		return k
	}
	if strings.EqualFold(s, "due_date") || strings.EqualFold(s, "duedate") {
		return SortDueDate
	}
	return SortNone
}

// DeriveView 搜索、过滤、排序，返回新切片，不修改 existing
func DeriveView(existing []model.Task, opts ViewOptions) []model.Task {
	term := strings.ToLower(strings.TrimSpace(opts.SearchTerm))
	pf := strings.ToLower(strings.TrimSpace(opts.PriorityFilter))

	out := make([]model.Task, 0, len(existing))
	for _, t := range existing {
		if term != "" && !strings.Contains(strings.ToLower(t.Title), term) {
			continue
		}
		if pf != "" && pf != PriorityAll && string(t.Priority) != pf {
			continue
		}
		switch opts.StatusFilter {
		case StatusActive:
			if t.Completed {
				continue
			}
		case StatusCompleted:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}

	if less := lessFunc(opts); less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

func lessFunc(opts ViewOptions) func(a, b model.Task) bool {
	switch opts.SortKey {
	case SortNewest:
		return func(a, b model.Task) bool { return a.CreatedAt > b.CreatedAt }
	case SortOldest:
		return func(a, b model.Task) bool { return a.CreatedAt < b.CreatedAt }
	case SortPriority:
		return func(a, b model.Task) bool { return a.Priority.Rank() < b.Priority.Rank() }
	case SortOrder:
		return func(a, b model.Task) bool { return a.Order < b.Order }
	case SortDueDate:
		return func(a, b model.Task) bool {
			az, bz := a.DueDate.IsZero(), b.DueDate.IsZero()
			if az || bz {
				if az == bz {
					return false
				}
				if opts.MissingDueFirst {
					return az
				}
				return bz
			}
			return a.DueDate.Before(b.DueDate)
		}
	}
	return nil
}

// SortByOrder 按 order 升序返回副本
func SortByOrder(tasks []model.Task) []model.Task {
	return DeriveView(tasks, ViewOptions{SortKey: SortOrder})
}

// Stats 派生统计，每次请求重新计算
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Percent   int `json:"percent"`
	Overdue   int `json:"overdue"`
	DueToday  int `json:"dueToday"`
}

// ComputeStats 统计总数、完成数和完成百分比；逾期和今日到期只统计未完成任务
func ComputeStats(tasks []model.Task, today time.Time) Stats {
	var s Stats
	s.Total = len(tasks)
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
			continue
		}
		switch DueStatus(t, today) {
		case DueOverdue:
			s.Overdue++
		case DueToday:
			s.DueToday++
		}
	}
	s.Active = s.Total - s.Completed
	if s.Total > 0 {
		s.Percent = int(math.Round(float64(s.Completed) * 100 / float64(s.Total)))
	}
	return s
}
