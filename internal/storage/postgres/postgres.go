// Package postgres records battles to PostgreSQL with PostGIS through the
// queued gorm writer.
package postgres

import (
	"log/slog"

	"github.com/mechcore/firecontrol/internal/database"
	gormstorage "github.com/mechcore/firecontrol/internal/storage/gorm"
	"gorm.io/gorm"
)

// Connector opens the database at Init.
type Connector func() (*gorm.DB, error)

// Backend is a gorm backend whose connection is deferred until Init.
type Backend struct {
	*gormstorage.Backend
	connect Connector
	log     *slog.Logger
}

// New returns a backend that connects with the db.* config keys.
func New(log *slog.Logger) *Backend {
	return NewWithConnector(log, database.OpenPostgres)
}

// NewWithConnector returns a backend that opens its database with connect.
func NewWithConnector(log *slog.Logger, connect Connector) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{connect: connect, log: log.With("backend", "postgres")}
}

// Init connects, migrates and starts the writer.
func (b *Backend) Init() error {
	db, err := b.connect()
	if err != nil {
		return err
	}
	inner := gormstorage.New(gormstorage.Dependencies{DB: db, Logger: b.log})
	if err := inner.Init(); err != nil {
		return err
	}
	b.Backend = inner
	b.log.Info("Connected to database", "dialect", db.Dialector.Name())
	return nil
}

// Close stops the writer. It is a no-op before a successful Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
