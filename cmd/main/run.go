package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dashboard-sync/src/grpc_control"
	"dashboard-sync/src/helpers"
	"dashboard-sync/src/interfaces"
	"dashboard-sync/src/logger"
	"dashboard-sync/src/server"
	"dashboard-sync/src/snapshot"
	"dashboard-sync/src/synchronizer"
	"dashboard-sync/src/utils"

	"github.com/google/subcommands"
)

type runCmd struct {
	noRelay bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "bootstrap the state, follow the stream and serve it locally" }
func (*runCmd) Usage() string {
	return `run [-no-relay]

  Loads the snapshot, then keeps the state live from the push stream until
  interrupted. The relay serves the merged state on relay.host:relay.port and
  the gRPC health service runs when grpc_port is set.
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.noRelay, "no-relay", false, "do not start the relay even if relay.enabled is set")
}

// -----------------------------------------------------------------------------

func (r *runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conf, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	cfg := conf.MConfig
	appLogger := logger.NewLogger(cfg, cfg.Name)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Components
	networkManager := setupNetwork(cfg)
	loader := setupLoader(cfg, networkManager)
	manager, err := setupStream(cfg)
	if err != nil {
		appLogger.Critical("Invalid stream endpoint: %v", err)
		return subcommands.ExitFailure
	}
	journal, err := setupJournal(cfg, appLogger)
	if err != nil {
		return subcommands.ExitFailure
	}
	if journal != nil {
		defer journal.Close()
	}

	syncer := synchronizer.New(cfg, loader, manager, journal, logger.NewLogger(cfg, "Synchronizer"))
	defer syncer.Stop()

	// 2. Consumers subscribe before bootstrap so they see the first version
	var relay interfaces.IDataExchanger
	if cfg.Relay.Enabled && !r.noRelay {
		clock := utils.NewMarketClock(utils.NewTradingCalendar(cfg.MarketMIC, appLogger))
		bot := snapshot.NewBotController(cfg, networkManager, logger.NewLogger(cfg, "BotControl"))
		relay = server.NewRelayServer(cfg, syncer, bot, clock, logger.NewLogger(cfg, "Relay"))
		defer syncer.Subscribe(relay.Broadcast)()
	}

	var health *grpc_control.HealthService
	if cfg.GrpcPort > 0 {
		health = grpc_control.NewHealthService(cfg, logger.NewLogger(cfg, "HealthService"))
		defer syncer.Subscribe(health.Update)()
	}

	// 3. Bootstrap, then stream. Retrying is the caller's call.
	_, err = helpers.RetryWithBackoff(appLogger, "bootstrap", cfg.Bootstrap.Retries,
		time.Duration(cfg.Bootstrap.RetryDelayMs)*time.Millisecond,
		func() (struct{}, error) { return struct{}{}, syncer.Start(ctx) })
	if err != nil {
		appLogger.Critical("Bootstrap failed: %v", err)
		return subcommands.ExitFailure
	}
	appLogger.Info("Session %s bootstrapped at version %d", syncer.SessionID(), syncer.Store().Version())

	// 4. Servers
	startServers(relay, health, appLogger)
	defer stopServers(relay, health, appLogger)

	<-ctx.Done()
	appLogger.Info("Shutting down...")
	return subcommands.ExitSuccess
}

// -----------------------------------------------------------------------------

// startServers runs the optional relay and health servers in the background
func startServers(relay interfaces.IDataExchanger, health *grpc_control.HealthService, appLogger *logger.Logger) {
	if relay != nil {
		go func() {
			if err := relay.Start(); err != nil {
				appLogger.Error("Relay failed: %v", err)
			}
		}()
	}
	if health != nil {
		go func() {
			if err := health.Start(); err != nil {
				appLogger.Critical("Health service failed: %v", err)
			}
		}()
	}
}

func stopServers(relay interfaces.IDataExchanger, health *grpc_control.HealthService, appLogger *logger.Logger) {
	if relay != nil {
		if err := relay.Stop(); err != nil {
			appLogger.Warning("Relay shutdown: %v", err)
		}
	}
	if health != nil {
		health.Stop()
	}
}
