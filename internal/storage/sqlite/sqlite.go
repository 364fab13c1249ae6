// Package sqlitestorage records battles to an in-memory SQLite database
// and snapshots it to disk on a timer and at the end of every session.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mechcore/firecontrol/internal/database"
	gormstorage "github.com/mechcore/firecontrol/internal/storage/gorm"
	"gorm.io/gorm"
)

// Config holds the snapshot settings.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string
	// DSN replaces the shared in-memory database. Tests point it at a file.
	DSN string
}

// Backend is a gorm backend on SQLite with periodic snapshots.
type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	cfg Config
	log *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	loop     sync.WaitGroup
}

// New opens the database. The schema is created by Init.
func New(cfg Config, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("backend", "sqlite")
	db, err := database.OpenSQLite(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite storage: %w", err)
	}
	inner := gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log, SQLiteSchema: true})
	return &Backend{Backend: inner, db: db, cfg: cfg, log: log, stop: make(chan struct{})}, nil
}

// Init migrates the schema and starts the snapshot timer when both a path
// and an interval are configured.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" || b.cfg.DumpInterval <= 0 {
		return nil
	}
	b.loop.Add(1)
	go func() {
		defer b.loop.Done()
		t := time.NewTicker(b.cfg.DumpInterval)
		defer t.Stop()
		for {
			select {
			case <-b.stop:
				return
			case <-t.C:
				if err := b.Dump(); err != nil {
					b.log.Error("Periodic snapshot failed", "error", err)
				}
			}
		}
	}()
	return nil
}

// EndSession flushes the session and takes a final snapshot.
func (b *Backend) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	return b.Dump()
}

// Close stops the snapshot timer and the writer. It may be called twice.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stop) })
	b.loop.Wait()
	return b.Backend.Close()
}

// Dump flushes queued records and snapshots the database to DumpPath.
// Without a DumpPath it does nothing.
func (b *Backend) Dump() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	if err := b.Backend.Flush(); err != nil {
		return err
	}
	began := time.Now()
	if err := database.Snapshot(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug("Snapshot written", "path", b.cfg.DumpPath, "took", time.Since(began))
	return nil
}

// GetExportedFilePath returns the snapshot path.
func (b *Backend) GetExportedFilePath() string {
	return b.cfg.DumpPath
}
