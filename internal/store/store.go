package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/signwiz/internal/config"
	"github.com/kode4food/signwiz/pkg/api"
	"github.com/kode4food/signwiz/pkg/log"
)

// Store keeps settings and history under a key prefix
type Store struct {
	client *redis.Client
	prefix string
	limit  int
}

const (
	settingsKey = "settings"
	historyKey  = "history"
)

var (
	ErrSettingsNotFound = errors.New("settings not found")
	ErrStoreDisabled    = errors.New("store not configured")
)

// New connects to the Redis server named by the configuration
func New(cfg config.StoreConfig) (*Store, error) {
	if cfg.Addr == "" {
		return nil, ErrStoreDisabled
	}
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		Protocol:        2,
		DisableIdentity: true,
	})
	return NewWithClient(client, cfg.Prefix, cfg.HistoryLimit), nil
}

// NewWithClient wraps an existing Redis client. The Store takes ownership
// of the client
func NewWithClient(client *redis.Client, prefix string, limit int) *Store {
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
	}
	return &Store{
		client: client,
		prefix: prefix,
		limit:  limit,
	}
}

// Ping checks that the Redis server is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveSettings replaces the persisted operator settings
func (s *Store) SaveSettings(ctx context.Context, st *api.Settings) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	err = s.client.Set(ctx, s.key(settingsKey), data, 0).Err()
	if err != nil {
		slog.Error("Failed to save settings", log.Error(err))
		return err
	}
	return nil
}

// LoadSettings returns the persisted operator settings
func (s *Store) LoadSettings(ctx context.Context) (*api.Settings, error) {
	data, err := s.client.Get(ctx, s.key(settingsKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, err
	}

	var res api.Settings
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &res, nil
}

// Record prepends a run summary to the history, keeping only the most
// recent entries
func (s *Store) Record(ctx context.Context, run *api.RunSummary) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}

	key := s.key(historyKey)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, key, data)
		p.LTrim(ctx, key, 0, int64(s.limit-1))
		return nil
	})
	if err != nil {
		slog.Error("Failed to record run",
			slog.String("run_id", run.ID),
			log.Error(err))
		return err
	}
	return nil
}

// History returns up to n run summaries, most recent first. A
// non-positive n returns every retained entry
func (s *Store) History(
	ctx context.Context, n int,
) ([]*api.RunSummary, error) {
	stop := int64(-1)
	if n > 0 {
		stop = int64(n - 1)
	}
	items, err := s.client.LRange(ctx, s.key(historyKey), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	res := make([]*api.RunSummary, 0, len(items))
	for _, item := range items {
		var run api.RunSummary
		if err := json.Unmarshal([]byte(item), &run); err != nil {
			slog.Warn("Skipping unreadable history entry", log.Error(err))
			continue
		}
		res = append(res, &run)
	}
	return res, nil
}

// Close releases the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}
