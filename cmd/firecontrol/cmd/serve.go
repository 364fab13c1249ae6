package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mechcore/firecontrol/internal/config"
	"github.com/mechcore/firecontrol/internal/dispatcher"
	"github.com/mechcore/firecontrol/internal/handlers"
	"github.com/mechcore/firecontrol/internal/logging"
	"github.com/mechcore/firecontrol/internal/monitor"
	"github.com/mechcore/firecontrol/internal/phase"
	"github.com/mechcore/firecontrol/internal/scenario"
	"github.com/mechcore/firecontrol/internal/server"
	"github.com/mechcore/firecontrol/internal/transport"
)

var serveScenario string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept players and resolve their attacks",
	Long: `Start the attack resolution server.

Players connect over TCP (server.address) or WebSocket (server.wsAddress,
server.wsPath), say hello, declare attacks and end phases. The board is set
up from a scenario file; without one it starts empty.

Examples:
  firecontrol serve --scenario duel.yaml
  firecontrol serve -c /etc/firecontrol --log-level debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveScenario, "scenario", "s", "", "scenario file with the starting units (overrides the scenario config key)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp("firecontrol")
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	script, name, err := loadScript(a, serveScenario)
	if err != nil {
		return err
	}
	g, err := script.Setup(a.catalog)
	if err != nil {
		return fmt.Errorf("set up game: %w", err)
	}

	if _, err := a.openStorage(); err != nil {
		return err
	}
	points := a.openInflux()
	session, err := a.newSession(name, script.Seed, g.Options().AsMap())
	if err != nil {
		return err
	}
	a.tagSession(session.ID, g.Phase)
	a.log.Info("Session started", "session", session.ID, "seed", script.Seed, "units", len(script.Units))

	resolver, err := phase.New(phase.Dependencies{
		Game:    g,
		Storage: a.storage,
		Influx:  points,
		Session: session,
		Logger:  a.log,
	})
	if err != nil {
		return err
	}

	tc := config.GetTransportConfig()
	reg, err := transport.DefaultRegistry()
	if err != nil {
		return err
	}
	codec, err := transport.NewCodec(reg, tc.Marshaller, tc.CompressThreshold, tc.MaxFrameSize)
	if err != nil {
		return err
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.zlogger("dispatcher")))
	if err != nil {
		return err
	}

	sc := config.GetServerConfig()
	var svc *handlers.Service
	srv, err := server.New(server.Config{
		Address:        sc.Address,
		WSAddress:      sc.WSAddress,
		WSPath:         sc.WSPath,
		MaxConnections: sc.MaxConnections,
		InBuffer:       sc.InBuffer,
		IdleTimeout:    sc.IdleTimeout,
	}, server.Dependencies{
		Codec:        codec,
		Dispatcher:   d,
		Logger:       a.log,
		OnDisconnect: func(id uint64) { svc.Forget(id) },
	})
	if err != nil {
		return err
	}
	svc = handlers.NewService(handlers.Dependencies{
		Resolver:     resolver,
		Broadcaster:  srv,
		ServerName:   sc.Name,
		SessionID:    session.ID,
		Logger:       a.log,
		PhaseTimeout: sc.PhaseTimeout,
	})
	svc.Register(d)

	mon := monitor.NewService(monitor.Dependencies{
		Stats:         resolver,
		Connections:   srv.Connections,
		PendingWrites: func() int { return srv.PendingWrites() + a.pendingWrites() },
		Influx:        points,
		DB:            a.storageDB(),
		StatusFile:    filepath.Join(viper.GetString("logsDir"), "status.json"),
		Logger:        a.log,
	})
	if err := mon.Start(); err != nil {
		return err
	}

	serveErr := srv.ListenAndServe(ctx)
	mon.Stop()
	a.log.Info("Server stopped", "phase", g.Phase())

	endCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return errors.Join(serveErr, a.endSession(endCtx))
}

// loadScript reads the scenario named by path or the scenario config key.
// Without a scenario the game starts empty with the configured options. A
// zero seed is replaced with one taken from the clock.
func loadScript(a *app, path string) (phase.Script, string, error) {
	if path == "" {
		path = viper.GetString("scenario")
	}

	var script phase.Script
	name := "skirmish"
	if path != "" {
		s, err := scenario.LoadFile(path, a.catalog)
		if err != nil {
			return phase.Script{}, "", err
		}
		script = s
		name = filepath.Base(path)
	} else {
		opts, err := config.GetGameOptions()
		if err != nil {
			return phase.Script{}, "", err
		}
		script.Options = opts
	}

	if script.Seed == 0 {
		script.Seed = config.GetSeed()
	}
	if script.Seed == 0 {
		script.Seed = uint64(time.Now().UnixNano())
	}
	return script, name, nil
}
