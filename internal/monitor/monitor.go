// Package monitor samples resolver health and publishes it to a status
// file, InfluxDB and the database.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mechcore/firecontrol/internal/influx"
	"github.com/mechcore/firecontrol/internal/model"

	"gorm.io/gorm"
)

// DefaultInterval is the sampling period.
const DefaultInterval = time.Second

// Stats is what the resolver reports about itself.
type Stats struct {
	SessionID      string        `json:"sessionId"`
	Phase          int           `json:"phase"`
	PendingAttacks int           `json:"pendingAttacks"`
	LastResolve    time.Duration `json:"lastResolve"`
}

// StatsProvider is implemented by the phase resolver.
type StatsProvider interface {
	Stats() Stats
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Stats         StatsProvider
	Connections   func() int
	PendingWrites func() int
	Influx        influx.PointWriter
	DB            *gorm.DB
	StatusFile    string
	Interval      time.Duration
	Logger        *slog.Logger
}

// Status is the snapshot written to the status file.
type Status struct {
	Stats
	Connections   int `json:"connections"`
	PendingWrites int `json:"pendingWrites"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current status and the matching performance sample.
func (s *Service) GetStatus() (Status, model.PerformanceSample) {
	var st Status
	if s.deps.Stats != nil {
		st.Stats = s.deps.Stats.Stats()
	}
	if s.deps.Connections != nil {
		st.Connections = s.deps.Connections()
	}
	if s.deps.PendingWrites != nil {
		st.PendingWrites = s.deps.PendingWrites()
	}

	sample := model.PerformanceSample{
		Time:                  time.Now(),
		SessionID:             st.SessionID,
		Phase:                 st.Phase,
		PendingAttacks:        st.PendingAttacks,
		Connections:           st.Connections,
		LastResolveDurationMs: float32(st.LastResolve.Microseconds()) / 1000,
	}
	return st, sample
}

// Sample takes one status sample and publishes it everywhere configured.
func (s *Service) Sample(ctx context.Context) error {
	st, sample := s.GetStatus()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.deps.StatusFile != "" {
		keep(writeStatusFile(s.deps.StatusFile, st))
	}
	if s.deps.Influx != nil {
		keep(s.deps.Influx.WritePoint(ctx, influx.BucketPerformance, influx.PerformancePoint(sample)))
	}
	if s.deps.DB != nil && sample.SessionID != "" {
		if err := s.deps.DB.WithContext(ctx).Create(&sample).Error; err != nil {
			keep(fmt.Errorf("write performance sample: %w", err))
		}
	}
	return firstErr
}

func writeStatusFile(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), s.deps.Interval)
				if err := s.Sample(ctx); err != nil {
					logger.Error("Error publishing status", "error", err)
				}
				cancel()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
