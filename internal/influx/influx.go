// Package influx writes resolution metrics to InfluxDB, falling back to a
// gzip line-protocol file while the database is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/mechcore/firecontrol/internal/config"
)

const (
	BucketCombat      = "firecontrol_combat"
	BucketPerformance = "firecontrol_performance"
)

// Buckets are created on connect when missing.
var Buckets = []string{BucketCombat, BucketPerformance}

var (
	ErrDisabled      = errors.New("influx disabled")
	ErrNotConnected  = errors.New("influx not connected and no backup file open")
	ErrUnknownBucket = errors.New("unknown influx bucket")
)

// PointWriter is the write side of Manager.
type PointWriter interface {
	WritePoint(ctx context.Context, bucket string, point *write.Point) error
}

// Manager writes points to InfluxDB when it answered the ping on Connect,
// and to a gzip backup file otherwise.
type Manager struct {
	cfg        config.InfluxConfig
	log        zerolog.Logger
	backupPath string

	mu      sync.Mutex
	client  influxdb2.Client
	writers map[string]api.WriteAPI
	backup  *gzip.Writer
	file    *os.File
}

func NewManager(log zerolog.Logger, cfg config.InfluxConfig, backupPath string) *Manager {
	return &Manager{
		cfg:        cfg,
		log:        log,
		backupPath: backupPath,
		writers:    make(map[string]api.WriteAPI),
	}
}

// Online reports whether points go to InfluxDB rather than the backup.
func (m *Manager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writers) > 0
}

// Connect pings the server and prepares the org, buckets and writers. When
// the ping fails the backup file is opened instead and nil is returned.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}
	client := influxdb2.NewClientWithOptions(m.cfg.URL, m.cfg.Token,
		influxdb2.DefaultOptions().SetBatchSize(2500).SetFlushInterval(1000))

	if ok, err := client.Ping(ctx); err != nil || !ok {
		client.Close()
		m.log.Warn().Err(err).Str("url", m.cfg.URL).Str("backup", m.backupPath).
			Msg("InfluxDB unreachable, writing points to backup file")
		return m.openBackup()
	}

	if err := m.ensureBuckets(ctx, client); err != nil {
		client.Close()
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.client = client
	for _, bucket := range Buckets {
		w := client.WriteAPI(m.cfg.Org, bucket)
		go m.drainErrors(bucket, w.Errors())
		m.writers[bucket] = w
	}
	m.log.Info().Str("url", m.cfg.URL).Msg("InfluxDB connected")
	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backup != nil {
		return nil
	}
	f, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open influx backup: %w", err)
	}
	m.file = f
	m.backup = gzip.NewWriter(f)
	return nil
}

func (m *Manager) ensureBuckets(ctx context.Context, client influxdb2.Client) error {
	orgs := client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.log.Info().Str("org", m.cfg.Org).Msg("Creating InfluxDB organization")
		if org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org); err != nil {
			return fmt.Errorf("create influx org %q: %w", m.cfg.Org, err)
		}
	}

	expire := domain.RetentionRuleTypeExpire
	rule := domain.RetentionRule{Type: &expire, EverySeconds: int64(m.cfg.RetentionDays) * 24 * 60 * 60}
	for _, bucket := range Buckets {
		if _, err := client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.log.Info().Str("bucket", bucket).Int("retentionDays", m.cfg.RetentionDays).Msg("Creating InfluxDB bucket")
		if _, err := client.BucketsAPI().CreateBucketWithName(ctx, org, bucket, rule); err != nil {
			return fmt.Errorf("create influx bucket %q: %w", bucket, err)
		}
	}
	return nil
}

func (m *Manager) drainErrors(bucket string, errs <-chan error) {
	for err := range errs {
		m.log.Error().Err(err).Str("bucket", bucket).Msg("InfluxDB write failed")
	}
}

// WritePoint queues point for bucket, or appends it to the backup file as
// line protocol with nanosecond precision.
func (m *Manager) WritePoint(_ context.Context, bucket string, point *write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.writers) > 0 {
		w, ok := m.writers[bucket]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
		}
		w.WritePoint(point)
		return nil
	}
	if m.backup == nil {
		return ErrNotConnected
	}
	line := write.PointToLineProtocol(point, time.Nanosecond)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := m.backup.Write([]byte(line)); err != nil {
		return fmt.Errorf("write influx backup: %w", err)
	}
	return nil
}

// Close flushes queued points and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.writers {
		w.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}
	var errs []error
	if m.backup != nil {
		errs = append(errs, m.backup.Close())
	}
	if m.file != nil {
		errs = append(errs, m.file.Close())
	}
	return errors.Join(errs...)
}
