// Package memory keeps a session in memory and exports it as a JSON battle
// log when the session ends.
package memory

import (
	"sync"
	"time"

	"github.com/mechcore/firecontrol/internal/config"
	v1 "github.com/mechcore/firecontrol/internal/storage/memory/export/v1"
	"github.com/mechcore/firecontrol/pkg/core"
)

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session
	endTime time.Time

	units   map[core.EntityID]*v1.UnitRecord
	attacks []core.AttackResult
	reports []core.Report

	lastExportPath     string
	lastExportMetadata core.UploadMetadata

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		units: make(map[core.EntityID]*v1.UnitRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session and drops anything recorded before.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.endTime = time.Time{}
	b.units = make(map[core.EntityID]*v1.UnitRecord)
	b.attacks = nil
	b.reports = nil
	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	return b.EndSessionAt(time.Now())
}

// EndSessionAt exports the session as if it ended at end. The export
// command uses it to rebuild logs of sessions recorded in a database.
func (b *Backend) EndSessionAt(end time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	b.endTime = end
	return b.exportJSON()
}

// RecordAttack records an attack result
func (b *Backend) RecordAttack(r *core.AttackResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attacks = append(b.attacks, *r)
	return nil
}

// RecordReports records battle log lines
func (b *Backend) RecordReports(reports []core.Report) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports = append(b.reports, reports...)
	return nil
}

// RecordUnitState records a unit snapshot
func (b *Backend) RecordUnitState(s *core.UnitState) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.units[s.UnitID]
	if !ok {
		record = &v1.UnitRecord{ID: s.UnitID}
		b.units[s.UnitID] = record
	}
	if s.Name != "" {
		record.Name = s.Name
	}
	record.States = append(record.States, *s)
	return nil
}

// Attacks returns a copy of the recorded attack results.
func (b *Backend) Attacks() []core.AttackResult {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.AttackResult(nil), b.attacks...)
}

// Reports returns a copy of the recorded log lines.
func (b *Backend) Reports() []core.Report {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Report(nil), b.reports...)
}

// GetExportedFilePath returns the path of the last export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last export for upload.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMetadata
}
