package engine

import (
	"context"

	"tasklist/model"
)

// SnapshotStore 整体快照持久化：启动时读一次，每次修改后整体覆盖
type SnapshotStore interface {
	Load(ctx context.Context) ([]model.Task, error)
	Save(ctx context.Context, tasks []model.Task) error
}

// CreateRequest 远程创建任务的请求体
type CreateRequest struct {
	Title    string         `json:"title"`
	DueDate  model.Date     `json:"dueDate"`
	Priority model.Priority `json:"priority,omitempty"`
}

// RemoteStore 远程 CRUD 持久化，每个修改都是一次往返
type RemoteStore interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, req CreateRequest) (model.Task, error)
	Toggle(ctx context.Context, id string) (model.Task, error)
	UpdateTitle(ctx context.Context, id, title string) (model.Task, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, tasks []model.Task) error
}
