// Package storage records resolved battles. The server writes every
// session, attack result, report and unit state through a Backend.
package storage

import "github.com/mechcore/firecontrol/pkg/core"

// Backend receives a session's records in order: StartSession, any number
// of Record calls, then EndSession. Init runs once before the first session
// and Close once after the last.
type Backend interface {
	Init() error
	Close() error

	StartSession(s *core.Session) error
	EndSession() error

	RecordAttack(r *core.AttackResult) error
	RecordReports(reports []core.Report) error
	RecordUnitState(s *core.UnitState) error
}

// Uploadable backends leave a battle log on disk when a session ends.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// Pending backends queue writes and report the queue depth.
type Pending interface {
	PendingWrites() int
}
