package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	domrepo "AutoTrade/internal/domain/repository"
)

const modelFileName = "model_state.json"

// FileModelStore keeps the model blob in a single file, replaced atomically.
type FileModelStore struct {
	dir string
}

func NewFileModelStore(dir string) *FileModelStore {
	return &FileModelStore{dir: dir}
}

func (s *FileModelStore) path() string { return filepath.Join(s.dir, modelFileName) }

func (s *FileModelStore) Load(_ context.Context) ([]byte, error) {
	b, err := os.ReadFile(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return b, nil
}

func (s *FileModelStore) Save(_ context.Context, state []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, modelFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp model: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(state); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		return fmt.Errorf("replace model: %w", err)
	}
	return nil
}

// RedisModelStore keeps the model blob under one key without expiry.
type RedisModelStore struct {
	client *redis.Client
	key    string
}

func NewRedisModelStore(client *redis.Client, key string) *RedisModelStore {
	return &RedisModelStore{client: client, key: key}
}

func (s *RedisModelStore) Load(ctx context.Context) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return b, nil
}

func (s *RedisModelStore) Save(ctx context.Context, state []byte) error {
	if err := s.client.Set(ctx, s.key, state, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

var (
	_ domrepo.ModelStore = (*FileModelStore)(nil)
	_ domrepo.ModelStore = (*RedisModelStore)(nil)
)
