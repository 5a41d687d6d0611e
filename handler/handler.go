package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"tasklist/database"
	"tasklist/engine"
	"tasklist/model"
)

// Response 错误和健康检查的统一响应格式
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorInfo 错误信息
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateTaskRequest 创建任务请求体
type CreateTaskRequest struct {
	Title    string     `json:"title" example:"Buy groceries"`
	DueDate  model.Date `json:"dueDate" example:"2024-05-30"`
	Priority string     `json:"priority,omitempty" example:"high"`
}

// UpdateTaskRequest 修改标题请求体
type UpdateTaskRequest struct {
	Title string `json:"title" example:"Update weekly report"`
}

// ReorderRequest 重新排序请求体
type ReorderRequest struct {
	Tasks []model.Task `json:"tasks"`
}

// Handler 处理器结构体
type Handler struct {
	db         *database.DB
	strictness engine.Strictness
	logger     *log.Logger
	now        func() time.Time
}

// 超时配置
const (
	ListTimeout    = 5 * time.Second // 列表查询超时
	CreateTimeout  = 3 * time.Second // 创建超时
	UpdateTimeout  = 3 * time.Second // 更新超时
	DeleteTimeout  = 2 * time.Second // 删除超时
	ReorderTimeout = 5 * time.Second // 排序超时
	StatsTimeout   = 5 * time.Second // 统计查询超时
)

// NewHandler 创建新的处理器
func NewHandler(db *database.DB, strictness engine.Strictness, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	if strictness == "" {
		strictness = engine.StrictnessStrict
	}
	return &Handler{db: db, strictness: strictness, logger: logger, now: time.Now}
}

// Logger 返回处理器使用的 logger
func (h *Handler) Logger() *log.Logger {
	return h.logger
}

// sendJSON 发送JSON响应
func (h *Handler) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		// JSON编码失败，直接返回纯文本错误，不要再尝试调用sendError（会递归）
		h.logger.Errorf("Failed to encode response: %v", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error: Failed to encode response"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// sendError 发送错误响应
func (h *Handler) sendError(w http.ResponseWriter, status int, code, message string) {
	response := Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
	h.sendJSON(w, status, response)
}

// sendStoreError 把数据库错误映射成 HTTP 状态码
func (h *Handler) sendStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warnf("%s timeout: %v", op, err)
		h.sendError(w, http.StatusRequestTimeout, "TIMEOUT", "请求超时，请稍后重试")
	case errors.Is(err, context.Canceled):
		// 客户端取消请求,不需要响应
		h.logger.Debugf("%s canceled: %v", op, err)
	case errors.Is(err, database.ErrTaskNotFound):
		h.sendError(w, http.StatusNotFound, "NOT_FOUND", "任务不存在")
	default:
		h.logger.Errorf("Failed to %s: %v", op, err)
		h.sendError(w, http.StatusInternalServerError, "DATABASE_ERROR", "数据库操作失败")
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.sendError(w, http.StatusBadRequest, "INVALID_ID", "无效的ID")
		return "", false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 限制1MB
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.sendError(w, http.StatusBadRequest, "INVALID_JSON", fmt.Sprintf("JSON解析失败: %v", err))
		return false
	}
	return true
}

// HealthCheck 健康检查
// @Summary 健康检查
// @Description 返回应用当前健康状态
// @Tags health
// @Produce json
// @Success 200 {object} handler.Response
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := Response{
		Success: true,
		Data: map[string]interface{}{
			"status":    "ok",
			"timestamp": h.now().UTC().Format(time.RFC3339),
		},
		Message: "服务运行正常",
	}
	h.sendJSON(w, http.StatusOK, response)
}

// ListTasks 获取任务列表，按 order 升序
// @Summary 获取任务列表
// @Tags tasks
// @Produce json
// @Success 200 {array} model.Task
// @Failure 500 {object} handler.Response
// @Router /tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ListTimeout)
	defer cancel()

	tasks, err := h.db.ListTasksContext(ctx)
	if err != nil {
		h.sendStoreError(w, "list tasks", err)
		return
	}
	h.sendJSON(w, http.StatusOK, tasks)
}

// CreateTask 创建任务，order 为当前最大值 + 1
// @Summary 创建任务
// @Tags tasks
// @Accept json
// @Produce json
// @Param task body handler.CreateTaskRequest true "任务内容"
// @Success 201 {object} model.Task
// @Failure 400 {object} handler.Response
// @Failure 500 {object} handler.Response
// @Router /tasks [post]
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), CreateTimeout)
	defer cancel()
	defer r.Body.Close()

	var req CreateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}

	existing, err := h.db.ListTasksContext(ctx)
	if err != nil {
		h.sendStoreError(w, "create task", err)
		return
	}

	if err := engine.ValidateTitle(req.Title, existing, h.strictness); err != nil {
		var ve *engine.ValidationError
		if errors.As(err, &ve) {
			h.sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", ve.Message())
			return
		}
		h.sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	task := model.NewTask(req.Title, req.DueDate, model.ParsePriority(req.Priority), h.now())
	if err := h.db.CreateTaskContext(ctx, &task); err != nil {
		h.sendStoreError(w, "create task", err)
		return
	}

	h.logger.Info("task created", "id", task.ID, "order", task.Order)
	h.sendJSON(w, http.StatusCreated, task)
}

// ToggleTask 翻转完成状态，不读取请求体
// @Summary 切换完成状态
// @Tags tasks
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} model.Task
// @Failure 404 {object} handler.Response
// @Router /tasks/{id} [patch]
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), UpdateTimeout)
	defer cancel()

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	task, err := h.db.ToggleTaskContext(ctx, id)
	if err != nil {
		h.sendStoreError(w, "toggle task", err)
		return
	}
	h.sendJSON(w, http.StatusOK, task)
}

// UpdateTask 修改任务标题，空标题被拒绝
// @Summary 修改任务标题
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "任务ID"
// @Param task body handler.UpdateTaskRequest true "新标题"
// @Success 200 {object} model.Task
// @Failure 400 {object} handler.Response
// @Failure 404 {object} handler.Response
// @Router /tasks/{id} [put]
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), UpdateTimeout)
	defer cancel()
	defer r.Body.Close()

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		h.sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "标题不能为空")
		return
	}

	task, err := h.db.UpdateTitleContext(ctx, id, title)
	if err != nil {
		h.sendStoreError(w, "update task", err)
		return
	}
	h.sendJSON(w, http.StatusOK, task)
}

// DeleteTask 删除任务
// @Summary 删除任务
// @Tags tasks
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} handler.Response
// @Failure 404 {object} handler.Response
// @Router /tasks/{id} [delete]
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), DeleteTimeout)
	defer cancel()

	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.db.DeleteTaskContext(ctx, id); err != nil {
		h.sendStoreError(w, "delete task", err)
		return
	}
	h.sendJSON(w, http.StatusOK, Response{Success: true})
}

// ReorderTasks 保存调用方给出的完整顺序
// @Summary 重新排序
// @Tags tasks
// @Accept json
// @Produce json
// @Param tasks body handler.ReorderRequest true "重新编号后的任务列表"
// @Success 200 {object} handler.Response
// @Failure 400 {object} handler.Response
// @Router /tasks/reorder [post]
func (h *Handler) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ReorderTimeout)
	defer cancel()
	defer r.Body.Close()

	var req ReorderRequest
	if !h.decode(w, r, &req) {
		return
	}
	for _, t := range req.Tasks {
		if t.ID == "" {
			h.sendError(w, http.StatusBadRequest, "INVALID_ID", "无效的ID")
			return
		}
	}

	if err := h.db.ReorderTasksContext(ctx, req.Tasks); err != nil {
		h.sendStoreError(w, "reorder tasks", err)
		return
	}
	h.sendJSON(w, http.StatusOK, Response{Success: true})
}

// GetStats 获取统计信息(带超时控制)
// @Summary 统计信息
// @Tags tasks
// @Produce json
// @Success 200 {object} engine.Stats
// @Router /tasks/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), StatsTimeout)
	defer cancel()

	tasks, err := h.db.ListTasksContext(ctx)
	if err != nil {
		h.sendStoreError(w, "get stats", err)
		return
	}
	h.sendJSON(w, http.StatusOK, engine.ComputeStats(tasks, h.now()))
}
