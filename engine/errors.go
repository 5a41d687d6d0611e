package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 任务输入不合法
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 引用的任务不存在
	ErrNotFound = errors.New("task not found")
	// ErrPersistence 持久化适配器读写失败
	ErrPersistence = errors.New("persistence failed")
)

// 校验失败原因
const (
	ReasonTitleRequired = "title required"
	ReasonTooShort      = "too short"
	ReasonTooLong       = "too long"
	ReasonDuplicate     = "duplicate"
)

// ValidationError 标题校验失败
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Message 返回可以直接展示给用户的提示
func (e *ValidationError) Message() string {
	switch e.Reason {
	case ReasonTitleRequired:
		return "Task title is required"
	case ReasonTooShort:
		return fmt.Sprintf("Minimum %d characters", MinTitleLength)
	case ReasonTooLong:
		return fmt.Sprintf("Maximum %d characters", MaxTitleLength)
	case ReasonDuplicate:
		return "Duplicate task"
	default:
		return e.Reason
	}
}

// NotFoundError 操作引用了集合中不存在的 id
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistenceError 适配器加载或保存失败
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
