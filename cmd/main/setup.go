package main

import (
	"fmt"
	"time"

	"dashboard-sync/src/config"
	"dashboard-sync/src/interfaces"
	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"
	"dashboard-sync/src/network"
	"dashboard-sync/src/snapshot"
	"dashboard-sync/src/storage"
	"dashboard-sync/src/stream"
)

// -----------------------------------------------------------------------------

// loadConfig reads the .env file, then the YAML config.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(*envFile); err != nil {
		return nil, fmt.Errorf("error loading %s: %w", *envFile, err)
	}
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return conf, nil
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(cfg *models.MConfig) interfaces.INetworkManager {
	networkLogger := logger.NewLogger(cfg, "NetworkManager")
	return network.NewAsyncNetworkManager(cfg, networkLogger)
}

// -----------------------------------------------------------------------------

// setupLoader builds the snapshot loader over the network manager
func setupLoader(cfg *models.MConfig, nm interfaces.INetworkManager) *snapshot.Loader {
	return snapshot.NewLoader(cfg, nm, logger.NewLogger(cfg, "SnapshotLoader"))
}

// -----------------------------------------------------------------------------

// setupStream derives the stream endpoint from the API base URL and builds
// the connection manager. Nothing is dialed until Start.
func setupStream(cfg *models.MConfig) (*stream.Manager, error) {
	url, err := stream.StreamURL(cfg.API.BaseURL, cfg.API.StreamPath)
	if err != nil {
		return nil, err
	}
	dialer := stream.NewWebsocketDialer(
		time.Duration(cfg.Stream.HandshakeTimeoutSeconds)*time.Second,
		cfg.API.UserAgent,
		cfg.API.InsecureSkipVerify,
	)
	return stream.NewManager(url, dialer, cfg.Stream, logger.NewLogger(cfg, "StreamManager")), nil
}

// -----------------------------------------------------------------------------

// setupJournal opens the journal selected by storage.db_type; nil for "none".
func setupJournal(cfg *models.MConfig, appLogger *logger.Logger) (interfaces.IJournal, error) {
	journal, err := storage.NewJournal(cfg, logger.NewLogger(cfg, "Journal"))
	if err != nil {
		appLogger.Critical("Failed to init journal: %v", err)
		return nil, err
	}
	if journal == nil {
		appLogger.Info("Session journal disabled")
	}
	return journal, nil
}
