package storage

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"tasklist/model"
)

// Blob 按单个键读写原始快照内容的键值存储，内容不存在时 LoadRaw 返回 nil
type Blob interface {
	LoadRaw(ctx context.Context) ([]byte, error)
	SaveRaw(ctx context.Context, payload []byte) error
}

// BlobStore 在键值存储之上实现整体快照
type BlobStore struct {
	blob  Blob
	codec *codec
}

func NewBlobStore(blob Blob, logger *log.Logger) (*BlobStore, error) {
	if blob == nil {
		return nil, errors.New("blob is nil")
	}
	c, err := newCodec(logger)
	if err != nil {
		return nil, err
	}
	return &BlobStore{blob: blob, codec: c}, nil
}

func (s *BlobStore) Load(ctx context.Context) ([]model.Task, error) {
	data, err := s.blob.LoadRaw(ctx)
	if err != nil {
		return nil, err
	}
	return s.codec.decode("blob", data), nil
}

func (s *BlobStore) Save(ctx context.Context, tasks []model.Task) error {
	data, err := encode(tasks)
	if err != nil {
		return err
	}
	return s.blob.SaveRaw(ctx, data)
}
