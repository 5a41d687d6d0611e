package storage

import (
	"context"
	"sync"

	"tasklist/model"
)

// MemoryStore 进程内快照，可注入错误，测试用
type MemoryStore struct {
	mu    sync.Mutex
	tasks []model.Task
	saves int

	LoadErr error
	SaveErr error
}

// NewMemoryStore 用初始任务创建内存快照
func NewMemoryStore(initial ...model.Task) *MemoryStore {
	return &MemoryStore{tasks: append([]model.Task(nil), initial...)}
}

func (m *MemoryStore) Load(ctx context.Context) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return append([]model.Task{}, m.tasks...), nil
}

func (m *MemoryStore) Save(ctx context.Context, tasks []model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.tasks = append([]model.Task{}, tasks...)
	m.saves++
	return nil
}

// Saves 返回成功保存的次数
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Snapshot 返回最后一次保存的内容
func (m *MemoryStore) Snapshot() []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Task{}, m.tasks...)
}
