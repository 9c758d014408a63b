package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dashboard-sync/src/interfaces"
	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"
)

// -----------------------------------------------------------------------------
// BotController calls the control endpoints. The results are for display only;
// the sync core never acts on them.
// -----------------------------------------------------------------------------

type BotController struct {
	Logger  *logger.Logger
	Network interfaces.INetworkManager
	BaseURL string
}

// -----------------------------------------------------------------------------

func NewBotController(cfg *models.MConfig, nm interfaces.INetworkManager, log *logger.Logger) *BotController {
	return &BotController{
		Logger:  log,
		Network: nm,
		BaseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
	}
}

// -----------------------------------------------------------------------------

func (b *BotController) Start(ctx context.Context) (models.MBotControlResponse, error) {
	return b.post(ctx, PathBotStart)
}

func (b *BotController) Stop(ctx context.Context) (models.MBotControlResponse, error) {
	return b.post(ctx, PathBotStop)
}

// -----------------------------------------------------------------------------

func (b *BotController) Status(ctx context.Context) (models.MBotStatus, error) {
	var status models.MBotStatus
	body, err := b.Network.Get(ctx, b.BaseURL+PathBotStatus, nil)
	if err != nil {
		return status, fmt.Errorf("bot status: %w", err)
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return status, fmt.Errorf("decode bot status: %w", err)
	}
	return status, nil
}

// -----------------------------------------------------------------------------

func (b *BotController) post(ctx context.Context, path string) (models.MBotControlResponse, error) {
	var resp models.MBotControlResponse
	body, err := b.Network.Post(ctx, b.BaseURL+path, nil)
	if err != nil {
		return resp, fmt.Errorf("%s: %w", path, err)
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return resp, fmt.Errorf("decode %s response: %w", path, err)
	}
	b.Logger.Info("Bot control %s: status=%s running=%v", path, resp.Status, resp.IsRunning)
	return resp, nil
}
