// Package engine owns the in-memory task collection and the pure operations
// over it. Persistence is injected as a SnapshotStore or a RemoteStore.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"tasklist/model"
)

// Mode 持久化方式
type Mode string

const (
	ModeSnapshot Mode = "snapshot"
	ModeRemote   Mode = "remote"
)

// Config 引擎配置
type Config struct {
	Strictness      Strictness
	Mode            Mode
	MissingDueFirst bool
	// RollbackOnReorderFailure 远程保存排序失败时恢复本地顺序
	RollbackOnReorderFailure bool
}

// DefaultConfig 严格校验 + 快照持久化
func DefaultConfig() Config {
	return Config{Strictness: StrictnessStrict, Mode: ModeSnapshot}
}

// EventKind 描述一次操作的结果，供展示层转换成提示
type EventKind string

const (
	EventNone      EventKind = "none"
	EventCreated   EventKind = "created"
	EventUpdated   EventKind = "updated"
	EventDeleted   EventKind = "deleted"
	EventCleared   EventKind = "cleared"
	EventReordered EventKind = "reordered"
)

// Event 操作结果
type Event struct {
	Kind   EventKind
	TaskID string
	Title  string
	Count  int
}

// Option 配置 Engine
type Option func(*Engine)

func WithSnapshotStore(s SnapshotStore) Option {
	return func(e *Engine) { e.snapshot = s }
}

func WithRemoteStore(r RemoteStore) Option {
	return func(e *Engine) { e.remote = r }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock 替换时间来源，测试用
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine 持有任务集合。集合只会被整体替换，不会原地修改。
// Engine 不支持并发调用，调用方需要串行化用户操作。
type Engine struct {
	cfg      Config
	tasks    []model.Task
	snapshot SnapshotStore
	remote   RemoteStore
	logger   *log.Logger
	now      func() time.Time
}

// New 创建引擎，检查所选模式对应的适配器是否已注入
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.Strictness == "" {
		cfg.Strictness = StrictnessStrict
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSnapshot
	}

	e := &Engine{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.Default()
	}

	switch cfg.Mode {
	case ModeSnapshot:
		if e.snapshot == nil {
			return nil, errors.New("snapshot mode requires a snapshot store")
		}
	case ModeRemote:
		if e.remote == nil {
			return nil, errors.New("remote mode requires a remote store")
		}
	default:
		return nil, fmt.Errorf("unknown persistence mode %q", cfg.Mode)
	}
	return e, nil
}

// Config 返回引擎配置
func (e *Engine) Config() Config {
	return e.cfg
}

// Open 加载初始集合。快照读取失败时从空集合开始；远程读取失败同样从空集合开始，但返回错误
func (e *Engine) Open(ctx context.Context) error {
	if e.cfg.Mode == ModeRemote {
		return e.refresh(ctx)
	}

	tasks, err := e.snapshot.Load(ctx)
	if err != nil {
		e.logger.Warn("failed to load snapshot, starting empty", "err", err)
		e.tasks = nil
		return nil
	}
	e.tasks = tasks
	e.logger.Debug("snapshot loaded", "tasks", len(tasks))
	return nil
}

func (e *Engine) refresh(ctx context.Context) error {
	tasks, err := e.remote.List(ctx)
	if err != nil {
		e.tasks = nil
		return &PersistenceError{Op: "list", Err: err}
	}
	e.tasks = SortByOrder(tasks)
	return nil
}

// commit 整体替换集合并写快照；写失败时保留新状态并报告
func (e *Engine) commit(ctx context.Context, tasks []model.Task) error {
	e.tasks = tasks
	if err := e.snapshot.Save(ctx, tasks); err != nil {
		e.logger.Error("failed to save snapshot", "err", err)
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// Tasks 返回当前集合的副本
func (e *Engine) Tasks() []model.Task {
	out := make([]model.Task, len(e.tasks))
	copy(out, e.tasks)
	return out
}

// View 计算派生视图
func (e *Engine) View(opts ViewOptions) []model.Task {
	if e.cfg.MissingDueFirst {
		opts.MissingDueFirst = true
	}
	return DeriveView(e.tasks, opts)
}

// Stats 计算统计信息
func (e *Engine) Stats() Stats {
	return ComputeStats(e.tasks, e.now())
}

// Add 新建任务。校验失败返回 *ValidationError，集合不变
func (e *Engine) Add(ctx context.Context, in NewTaskInput) (Event, error) {
	if e.cfg.Mode == ModeRemote {
		if err := ValidateTitle(in.Title, e.tasks, e.cfg.Strictness); err != nil {
			return Event{Kind: EventNone}, err
		}
		created, err := e.remote.Create(ctx, CreateRequest{
			Title:    in.Title,
			DueDate:  in.DueDate,
			Priority: in.Priority,
		})
		if err != nil {
			return Event{Kind: EventNone}, &PersistenceError{Op: "create", Err: err}
		}
		return Event{Kind: EventCreated, TaskID: created.ID, Title: created.Title}, e.refresh(ctx)
	}

	tasks, task, err := Add(e.tasks, in, AddOptions{Strictness: e.cfg.Strictness, Now: e.now()})
	if err != nil {
		return Event{Kind: EventNone}, err
	}
	return Event{Kind: EventCreated, TaskID: task.ID, Title: task.Title}, e.commit(ctx, tasks)
}

// Toggle 翻转完成状态，id 不存在时为空操作
func (e *Engine) Toggle(ctx context.Context, id string) (Event, error) {
	tasks, task, err := Toggle(e.tasks, id)
	if errors.Is(err, ErrNotFound) {
		return Event{Kind: EventNone, TaskID: id}, nil
	}

	if e.cfg.Mode == ModeRemote {
		if _, err := e.remote.Toggle(ctx, id); err != nil {
			return Event{Kind: EventNone, TaskID: id}, &PersistenceError{Op: "toggle", Err: err}
		}
		return Event{Kind: EventUpdated, TaskID: id, Title: task.Title}, e.refresh(ctx)
	}
	return Event{Kind: EventUpdated, TaskID: id, Title: task.Title}, e.commit(ctx, tasks)
}

// Edit 修改标题；空标题被丢弃，原标题保留
func (e *Engine) Edit(ctx context.Context, id, title string) (Event, error) {
	tasks, changed, err := Edit(e.tasks, id, title)
	if err != nil {
		return Event{Kind: EventNone, TaskID: id}, err
	}
	if !changed {
		return Event{Kind: EventNone, TaskID: id}, nil
	}

	if e.cfg.Mode == ModeRemote {
		updated, err := e.remote.UpdateTitle(ctx, id, title)
		if err != nil {
			return Event{Kind: EventNone, TaskID: id}, &PersistenceError{Op: "update", Err: err}
		}
		return Event{Kind: EventUpdated, TaskID: id, Title: updated.Title}, e.refresh(ctx)
	}
	i := indexOf(tasks, id)
	return Event{Kind: EventUpdated, TaskID: id, Title: tasks[i].Title}, e.commit(ctx, tasks)
}

// Delete 删除任务，id 不存在时为空操作
func (e *Engine) Delete(ctx context.Context, id string) (Event, error) {
	tasks, removed := Delete(e.tasks, id)
	if !removed {
		return Event{Kind: EventNone, TaskID: id}, nil
	}

	if e.cfg.Mode == ModeRemote {
		if err := e.remote.Delete(ctx, id); err != nil {
			return Event{Kind: EventNone, TaskID: id}, &PersistenceError{Op: "delete", Err: err}
		}
		return Event{Kind: EventDeleted, TaskID: id, Count: 1}, e.refresh(ctx)
	}
	return Event{Kind: EventDeleted, TaskID: id, Count: 1}, e.commit(ctx, tasks)
}

// ClearCompleted 删除所有已完成任务
func (e *Engine) ClearCompleted(ctx context.Context) (Event, error) {
	tasks, n := ClearCompleted(e.tasks)
	if n == 0 {
		return Event{Kind: EventNone}, nil
	}

	if e.cfg.Mode == ModeRemote {
		removed := 0
		for _, t := range e.tasks {
			if !t.Completed {
				continue
			}
			if err := e.remote.Delete(ctx, t.ID); err != nil {
				_ = e.refresh(ctx)
				return Event{Kind: EventCleared, Count: removed}, &PersistenceError{Op: "delete", Err: err}
			}
			removed++
		}
		return Event{Kind: EventCleared, Count: removed}, e.refresh(ctx)
	}
	return Event{Kind: EventCleared, Count: n}, e.commit(ctx, tasks)
}

// Reorder 把 movedID 移到 targetID 的位置并重新编号。
// 远程模式先更新本地再推送整个列表，推送失败时按配置决定是否回滚。
func (e *Engine) Reorder(ctx context.Context, movedID, targetID string) (Event, error) {
	tasks, moved := Reorder(e.tasks, movedID, targetID)
	if !moved {
		return Event{Kind: EventNone, TaskID: movedID}, nil
	}

	if e.cfg.Mode == ModeRemote {
		previous := e.tasks
		e.tasks = tasks
		if err := e.remote.Reorder(ctx, tasks); err != nil {
			e.logger.Error("failed to persist reorder", "err", err, "rollback", e.cfg.RollbackOnReorderFailure)
			ev := Event{Kind: EventReordered, TaskID: movedID, Count: len(tasks)}
			if e.cfg.RollbackOnReorderFailure {
				e.tasks = previous
				ev = Event{Kind: EventNone, TaskID: movedID}
			}
			return ev, &PersistenceError{Op: "reorder", Err: err}
		}
		return Event{Kind: EventReordered, TaskID: movedID, Count: len(tasks)}, e.refresh(ctx)
	}
	return Event{Kind: EventReordered, TaskID: movedID, Count: len(tasks)}, e.commit(ctx, tasks)
}
