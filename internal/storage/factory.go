package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mechcore/firecontrol/internal/config"
	"github.com/mechcore/firecontrol/internal/storage/memory"
	"github.com/mechcore/firecontrol/internal/storage/postgres"
	sqlitestorage "github.com/mechcore/firecontrol/internal/storage/sqlite"
	"github.com/mechcore/firecontrol/internal/storage/websocket"
)

// ErrUnknownBackend is returned for a storage.type nothing implements.
var ErrUnknownBackend = errors.New("unknown storage type")

var constructors = map[string]func(config.StorageConfig, *slog.Logger) (Backend, error){
	"": newMemory, "memory": newMemory,
	"postgres": func(_ config.StorageConfig, log *slog.Logger) (Backend, error) {
		return postgres.New(log), nil
	},
	"sqlite": func(cfg config.StorageConfig, log *slog.Logger) (Backend, error) {
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.DumpPath,
		}, log)
	},
	"websocket": func(cfg config.StorageConfig, log *slog.Logger) (Backend, error) {
		if cfg.WebSocket.URL == "" {
			return nil, errors.New("websocket storage needs storage.websocket.url")
		}
		return websocket.New(websocket.Config{URL: cfg.WebSocket.URL, Secret: cfg.WebSocket.Secret}, log), nil
	},
}

func newMemory(cfg config.StorageConfig, _ *slog.Logger) (Backend, error) {
	return memory.New(cfg.Memory), nil
}

// NewBackend builds the backend named by cfg.Type. An empty type selects
// the in-memory JSON backend. The backend is not initialized.
func NewBackend(cfg config.StorageConfig, log *slog.Logger) (Backend, error) {
	build, ok := constructors[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Type)
	}
	return build(cfg, log)
}
