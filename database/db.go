package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"tasklist/model"
)

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

type DB struct {
	conn   *sql.DB
	driver string
	logger *log.Logger
}

// ErrTaskNotFound 任务不存在
var ErrTaskNotFound = errors.New("task not found")

// New 打开数据库并初始化表结构，driver 为 sqlite3 或 mysql
func New(driver, dsn string, logger *log.Logger) (*DB, error) {
	if logger == nil {
		logger = log.Default()
	}
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverMySQL {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1) // 避免 SQLITE_BUSY
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, driver: driver, logger: logger}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info("database initialized", "driver", driver)
	return db, nil
}

// initSchema 初始化数据库表
func (db *DB) initSchema() error {
	var stmts []string
	switch db.driver {
	case DriverMySQL:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS tasks (
				id VARCHAR(64) PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				completed BOOLEAN NOT NULL DEFAULT FALSE,
				due_date VARCHAR(10) NOT NULL DEFAULT '',
				priority VARCHAR(16) NOT NULL DEFAULT 'medium',
				created_at BIGINT NOT NULL DEFAULT 0,
				position INT NOT NULL DEFAULT 0,
				INDEX idx_position (position)
			)`,
			`CREATE TABLE IF NOT EXISTS snapshots (
				name VARCHAR(128) PRIMARY KEY,
				payload LONGTEXT NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
		}
	default:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS tasks (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				completed INTEGER NOT NULL DEFAULT 0,
				due_date TEXT NOT NULL DEFAULT '',
				priority TEXT NOT NULL DEFAULT 'medium',
				created_at INTEGER NOT NULL DEFAULT 0,
				position INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_position ON tasks(position)`,
			`CREATE TABLE IF NOT EXISTS snapshots (
				name TEXT PRIMARY KEY,
				payload TEXT NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
		}
	}

	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	return db.conn.Close()
}

const taskColumns = "id, title, completed, due_date, priority, created_at, position"

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (model.Task, error) {
	var (
		t        model.Task
		due      string
		priority string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Completed, &due, &priority, &t.CreatedAt, &t.Order); err != nil {
		return model.Task{}, err
	}
	d, err := model.ParseDate(due)
	if err != nil {
		return model.Task{}, fmt.Errorf("解析 due_date 失败：%w", err)
	}
	t.DueDate = d
	t.Priority = model.ParsePriority(priority)
	return t, nil
}

// ListTasksContext 按 position 升序返回所有任务
func (db *DB) ListTasksContext(ctx context.Context) ([]model.Task, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT "+taskColumns+" FROM tasks ORDER BY position ASC, created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("查询失败：%w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描失败：%w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return tasks, nil
}

// GetTaskContext 根据 ID 获取任务，不存在返回 ErrTaskNotFound
func (db *DB) GetTaskContext(ctx context.Context, id string) (model.Task, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// CreateTaskContext 插入任务，position 取当前最大值 + 1，写回 task.Order
func (db *DB) CreateTaskContext(ctx context.Context, task *model.Task) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var maxPos sql.NullInt64
	if err := tx.QueryRowContext(ctx, "SELECT MAX(position) FROM tasks").Scan(&maxPos); err != nil {
		return fmt.Errorf("failed to query max position: %w", err)
	}
	task.Order = 1
	if maxPos.Valid {
		task.Order = int(maxPos.Int64) + 1
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		task.ID,
		task.Title,
		task.Completed,
		task.DueDate.String(),
		string(task.Priority),
		task.CreatedAt,
		task.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return tx.Commit()
}

// ToggleTaskContext 翻转完成状态并返回更新后的任务
func (db *DB) ToggleTaskContext(ctx context.Context, id string) (model.Task, error) {
	result, err := db.conn.ExecContext(ctx, "UPDATE tasks SET completed = NOT completed WHERE id = ?", id)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to toggle task: %w", err)
	}
	if err := expectRow(result); err != nil {
		return model.Task{}, err
	}
	return db.GetTaskContext(ctx, id)
}

// UpdateTitleContext 修改标题并返回更新后的任务
func (db *DB) UpdateTitleContext(ctx context.Context, id, title string) (model.Task, error) {
	current, err := db.GetTaskContext(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if current.Title == title {
		return current, nil
	}

	result, err := db.conn.ExecContext(ctx, "UPDATE tasks SET title = ? WHERE id = ?", title, id)
	if err != nil {
		return model.Task{}, fmt.Errorf("failed to update task: %w", err)
	}
	if err := expectRow(result); err != nil {
		return model.Task{}, err
	}
	current.Title = title
	return current, nil
}

// DeleteTaskContext 删除任务
func (db *DB) DeleteTaskContext(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return expectRow(result)
}

// ReorderTasksContext 在一个事务里采用调用方给出的 order 值
func (db *DB) ReorderTasksContext(ctx context.Context, tasks []model.Task) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "UPDATE tasks SET position = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare reorder: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		if _, err := stmt.ExecContext(ctx, t.Order, t.ID); err != nil {
			return fmt.Errorf("failed to reorder task %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}

func expectRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// SnapshotStore 把整个任务集合作为一条记录存进 snapshots 表，实现整体快照持久化
type SnapshotStore struct {
	db  *DB
	key string
}

// Snapshots 返回以 key 命名的快照存储，key 为空时使用 "tasks"
func (db *DB) Snapshots(key string) *SnapshotStore {
	if strings.TrimSpace(key) == "" {
		key = "tasks"
	}
	return &SnapshotStore{db: db, key: key}
}

// LoadRaw 读取原始快照内容，不存在时返回 nil
func (s *SnapshotStore) LoadRaw(ctx context.Context) ([]byte, error) {
	var payload string
	err := s.db.conn.QueryRowContext(ctx, "SELECT payload FROM snapshots WHERE name = ?", s.key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", s.key, err)
	}
	return []byte(payload), nil
}

// SaveRaw 覆盖写入快照
func (s *SnapshotStore) SaveRaw(ctx context.Context, payload []byte) error {
	now := time.Now().UTC()

	var query string
	switch s.db.driver {
	case DriverMySQL:
		query = "INSERT INTO snapshots (name, payload, updated_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE payload = VALUES(payload), updated_at = VALUES(updated_at)"
	default:
		query = "INSERT INTO snapshots (name, payload, updated_at) VALUES (?, ?, ?) ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at"
	}

	if _, err := s.db.conn.ExecContext(ctx, query, s.key, string(payload), now); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", s.key, err)
	}
	return nil
}
