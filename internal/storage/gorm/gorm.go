// Package gormstorage implements the storage.Backend interface on any gorm
// dialect with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mechcore/firecontrol/internal/database"
	"github.com/mechcore/firecontrol/internal/model"
	"github.com/mechcore/firecontrol/internal/model/convert"
	"github.com/mechcore/firecontrol/internal/queue"
	"github.com/mechcore/firecontrol/pkg/core"
	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued rows are written.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	SQLiteSchema  bool
	FlushInterval time.Duration
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Attacks    *queue.Queue[model.Attack]
	Reports    *queue.Queue[model.Report]
	UnitStates *queue.Queue[model.UnitState]
}

func newQueues() *queues {
	return &queues{
		Attacks:    queue.New[model.Attack](),
		Reports:    queue.New[model.Report](),
		UnitStates: queue.New[model.UnitState](),
	}
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues

	mu        sync.Mutex
	sessionID string

	writeMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init creates internal queues, runs schema migration, and starts the DB writer goroutine.
// Without a DB the backend only queues, which tests rely on.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		return nil
	}
	if err := database.Migrate(b.deps.DB, b.deps.SQLiteSchema); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.wg.Add(1)
	go b.writerLoop()
	return nil
}

// Close stops the writer and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
		close(b.stopChan)
	}
	b.wg.Wait()
	return b.Flush()
}

func (b *Backend) currentSession() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionID
}

// StartSession get-or-creates the session row and stamps later records with its ID.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	b.sessionID = s.ID
	b.mu.Unlock()

	if b.deps.DB == nil {
		return nil
	}
	row := convert.CoreToSession(*s)
	if _, err := row.GetOrInsert(b.deps.DB); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// EndSession writes everything queued and sets the session end time.
func (b *Backend) EndSession() error {
	if err := b.Flush(); err != nil {
		return err
	}
	id := b.currentSession()
	if b.deps.DB == nil || id == "" {
		return nil
	}
	end := sql.NullTime{Time: time.Now(), Valid: true}
	if err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).Update("end_time", end).Error; err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	return nil
}

// RecordAttack converts and queues an attack result.
func (b *Backend) RecordAttack(r *core.AttackResult) error {
	b.queues.Attacks.Push(convert.CoreToAttack(b.currentSession(), *r, time.Now()))
	return nil
}

// RecordReports converts and queues a batch of log lines.
func (b *Backend) RecordReports(reports []core.Report) error {
	id := b.currentSession()
	now := time.Now()
	rows := make([]model.Report, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, convert.CoreToReport(id, r, now))
	}
	b.queues.Reports.Push(rows...)
	return nil
}

// RecordUnitState converts and queues a unit snapshot.
func (b *Backend) RecordUnitState(s *core.UnitState) error {
	b.queues.UnitStates.Push(convert.CoreToUnitState(b.currentSession(), *s))
	return nil
}

// PendingWrites returns the number of queued rows.
func (b *Backend) PendingWrites() int {
	if b.queues == nil {
		return 0
	}
	return b.queues.Attacks.Len() + b.queues.Reports.Len() + b.queues.UnitStates.Len()
}

// Flush writes every queue to the database. Attacks go first so reports
// never reference a missing attack.
func (b *Backend) Flush() error {
	if b.deps.DB == nil || b.queues == nil {
		return nil
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := writeQueue(b.deps.DB, b.queues.Attacks, "attacks", b.deps.Logger); err != nil {
		return err
	}
	if err := writeQueue(b.deps.DB, b.queues.Reports, "reports", b.deps.Logger); err != nil {
		return err
	}
	return writeQueue(b.deps.DB, b.queues.UnitStates, "unit states", b.deps.Logger)
}

// writeQueue writes all items from a queue in one transaction. On failure
// the items go back on the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain()
	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("DB write failed", "table", name, "count", len(items), "error", err)
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Push(items...)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	log.Debug("DB write", "table", name, "count", len(items))
	return nil
}

// writerLoop periodically drains the queues into the DB.
func (b *Backend) writerLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}
