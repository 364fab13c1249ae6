package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/mechcore/firecontrol/internal/api"
	"github.com/mechcore/firecontrol/internal/catalog"
	"github.com/mechcore/firecontrol/internal/config"
	"github.com/mechcore/firecontrol/internal/influx"
	"github.com/mechcore/firecontrol/internal/logging"
	fcotel "github.com/mechcore/firecontrol/internal/otel"
	"github.com/mechcore/firecontrol/internal/storage"
	"github.com/mechcore/firecontrol/pkg/core"
)

// app is what every command shares: config, loggers, telemetry and the
// equipment catalog. Storage and InfluxDB are opened on demand.
type app struct {
	start time.Time

	slogManager *logging.SlogManager
	log         *slog.Logger
	level       string
	logOut      io.Writer
	logFile     *os.File
	otel        *fcotel.Provider

	catalog *catalog.Catalog
	influx  *influx.Manager
	storage storage.Backend
}

// newApp loads the config and sets up logging. name prefixes the log file.
func newApp(name string) (*app, error) {
	a := &app{start: time.Now()}

	a.slogManager = logging.NewSlogManager()
	a.slogManager.Setup(os.Stderr, "info", nil)
	a.log = a.slogManager.Logger()

	if err := config.Load(configDir); err != nil {
		config.SetDefaults()
		a.log.Warn("Failed to load config, using defaults!", "error", err)
	}
	if logLevel != "" {
		viper.Set("logLevel", logLevel)
	}
	a.level = viper.GetString("logLevel")

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	logPath := logging.LogFilePath(logsDir, name, a.start)
	if _, err := os.Stat(logPath); err == nil {
		_ = os.Rename(logPath, logPath+".old")
	}
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	a.logFile = f

	oc := fcotel.FromConfig(config.GetOTelConfig(), f)
	oc.ServiceVersion = version
	a.otel, err = fcotel.New(oc)
	if err != nil {
		a.log.Error("Failed to initialize OTel provider", "error", err)
		a.otel, _ = fcotel.New(fcotel.Config{})
	}

	if viper.GetBool("graylog.enabled") {
		gw, err := logging.NewGraylogWriter(viper.GetString("graylog.address"), name)
		if err != nil {
			a.log.Error("Failed to open graylog writer", "error", err)
		} else {
			a.slogManager.AddSink(gw)
		}
	}

	a.logOut = io.MultiWriter(os.Stderr, f)
	a.slogManager.Setup(a.logOut, a.level, a.otel.LoggerProvider())
	a.log = a.slogManager.Logger()
	a.log.Info("Logging to file", "path", logPath)

	if path := viper.GetString("catalog"); path != "" {
		a.catalog, err = catalog.LoadFile(path)
	} else {
		a.catalog, err = catalog.Default()
	}
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// tagSession adds the session id and current phase to every log record.
func (a *app) tagSession(id string, phase func() int) {
	a.slogManager.SetContextProvider(logging.SessionContext(id, phase))
	a.slogManager.Setup(a.logOut, a.level, a.otel.LoggerProvider())
	a.log = a.slogManager.Logger()
}

// zlogger returns a logger for the managers that log through zerolog.
func (a *app) zlogger(component string) zerolog.Logger {
	return logging.NewZerolog(a.level, component, a.logFile)
}

// openInflux connects to InfluxDB when it is enabled. Points fall back to
// the gzip backup file while the server is unreachable.
func (a *app) openInflux() influx.PointWriter {
	if !viper.GetBool("influx.enabled") {
		return nil
	}
	backup := filepath.Join(viper.GetString("logsDir"),
		fmt.Sprintf("influx_backup_%s.log.gz", a.start.Format("20060102_150405")))
	a.influx = influx.NewManager(a.zlogger("influx"), config.GetInfluxConfig(), backup)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.influx.Connect(ctx); err != nil {
		a.log.Error("Failed to connect to InfluxDB", "error", err)
	}
	return a.influx
}

// openStorage creates and initializes the configured storage backend.
func (a *app) openStorage() (storage.Backend, error) {
	cfg := config.GetStorageConfig()
	if cfg.Type == "sqlite" && cfg.SQLite.DumpPath == "" {
		cfg.SQLite.DumpPath = filepath.Join(viper.GetString("logsDir"),
			fmt.Sprintf("firecontrol_%s.db", a.start.Format("20060102_150405")))
	}
	b, err := storage.NewBackend(cfg, a.log)
	if err != nil {
		return nil, err
	}
	if err := b.Init(); err != nil {
		return nil, fmt.Errorf("init %s storage: %w", cfg.Type, err)
	}
	a.log.Info("Storage backend initialized", "type", cfg.Type)
	a.storage = b
	return b, nil
}

// storageDB returns the gorm connection behind the storage backend, if any.
func (a *app) storageDB() *gorm.DB {
	if b, ok := a.storage.(interface{ DB() *gorm.DB }); ok {
		return b.DB()
	}
	return nil
}

// pendingWrites reports the storage backend's queued records.
func (a *app) pendingWrites() int {
	if p, ok := a.storage.(storage.Pending); ok {
		return p.PendingWrites()
	}
	return 0
}

// newSession stamps a fresh session with the configured tag and starts
// recording it.
func (a *app) newSession(name string, seed uint64, opts map[string]any) (core.Session, error) {
	s := core.Session{
		ID:        uuid.NewString(),
		Name:      name,
		Seed:      seed,
		Options:   opts,
		StartTime: time.Now().UTC(),
		Tag:       viper.GetString("defaultTag"),
	}
	if a.storage != nil {
		if err := a.storage.StartSession(&s); err != nil {
			return s, fmt.Errorf("start session: %w", err)
		}
	}
	return s, nil
}

// endSession closes the recording and uploads the export when the backend
// produced one and an API key is configured.
func (a *app) endSession(ctx context.Context) error {
	if a.storage == nil {
		return nil
	}
	if err := a.storage.EndSession(); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	up, ok := a.storage.(storage.Uploadable)
	if !ok || up.GetExportedFilePath() == "" {
		return nil
	}
	a.log.Info("Battle log written", "path", up.GetExportedFilePath())
	return a.upload(ctx, up)
}

// upload sends an exported battle log to the results server. It is skipped
// without an API key or while the server is offline.
func (a *app) upload(ctx context.Context, up storage.Uploadable) error {
	key := viper.GetString("api.apiKey")
	if key == "" {
		return nil
	}
	client := api.New(viper.GetString("api.serverUrl"), key)
	if err := client.Healthcheck(ctx); err != nil {
		a.log.Warn("Results server is offline, skipping upload", "error", err)
		return nil
	}
	if err := client.Upload(ctx, up.GetExportedFilePath(), up.GetExportMetadata()); err != nil {
		return fmt.Errorf("upload battle log: %w", err)
	}
	a.log.Info("Uploaded battle log", "path", up.GetExportedFilePath())
	return nil
}

// close flushes and releases everything newApp and the open* helpers opened.
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if a.storage != nil {
		errs = append(errs, a.storage.Close())
	}
	if a.influx != nil {
		errs = append(errs, a.influx.Close())
	}
	errs = append(errs, a.slogManager.Flush(ctx))
	if a.otel != nil {
		errs = append(errs, a.otel.Shutdown(ctx))
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}
