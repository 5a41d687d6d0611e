// Package storage implements snapshot persistence: the whole task collection
// is loaded once and overwritten after every mutation.
package storage

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"tasklist/model"
)

//go:embed snapshot.schema.json
var snapshotSchema string

const schemaURL = "snapshot.schema.json"

// codec 校验并解析快照内容
type codec struct {
	schema *jsonschema.Schema
	logger *log.Logger
}

func newCodec(logger *log.Logger) (*codec, error) {
	if logger == nil {
		logger = log.Default()
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(snapshotSchema)); err != nil {
		return nil, fmt.Errorf("add snapshot schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}
	return &codec{schema: schema, logger: logger}, nil
}

// decode 空内容、JSON 损坏或不符合 schema 时返回空集合
func (c *codec) decode(source string, data []byte) []model.Task {
	if len(bytes.TrimSpace(data)) == 0 {
		return []model.Task{}
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		c.logger.Warn("malformed snapshot, starting empty", "source", source, "err", err)
		return []model.Task{}
	}
	if err := c.schema.Validate(doc); err != nil {
		c.logger.Warn("snapshot does not match schema, starting empty", "source", source, "err", err)
		return []model.Task{}
	}

	var tasks []model.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		c.logger.Warn("malformed snapshot, starting empty", "source", source, "err", err)
		return []model.Task{}
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks
}

func encode(tasks []model.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// FileStore 把任务集合保存为一个 JSON 文件
type FileStore struct {
	path  string
	codec *codec
}

// NewFileStore 创建文件快照存储，logger 为 nil 时使用默认 logger
func NewFileStore(path string, logger *log.Logger) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("snapshot path is empty")
	}
	c, err := newCodec(logger)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, codec: c}, nil
}

// Path 返回快照文件路径
func (s *FileStore) Path() string {
	return s.path
}

// Load 读取快照，文件不存在时返回空集合
func (s *FileStore) Load(ctx context.Context) ([]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return s.codec.decode(s.path, data), nil
}

// Save 整体覆盖快照，先写临时文件再 rename
func (s *FileStore) Save(ctx context.Context, tasks []model.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(tasks)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
