package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"dashboard-sync/src/helpers"
	"dashboard-sync/src/models"

	"github.com/gin-gonic/gin"
)

const (
	defaultTradeLimit = 20
	maxTradeLimit     = 500
)

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *RelayServer) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.source.Snapshot())
}

// -----------------------------------------------------------------------------

func (s *RelayServer) getHealth(c *gin.Context) {
	snap := s.source.Snapshot()

	resp := models.MHealthResponse{
		Status:          "ok",
		SessionID:       s.source.SessionID(),
		ConnectionState: snap.ConnectionState,
		Version:         snap.Version,
		Bootstrapped:    snap.Portfolio != nil,
		Connections:     s.Connections(),
		Errors:          s.source.ErrorCounts(),
	}
	if snap.ConnectionState != models.ConnectionOpen {
		// stale data is still served; consumers show a reconnecting indicator
		resp.Status = "degraded"
	}
	if s.clock != nil {
		resp.MarketMIC = s.clock.MIC()
		resp.MarketOpen = s.clock.IsOpen()
	}
	c.JSON(http.StatusOK, resp)
}

// -----------------------------------------------------------------------------

func (s *RelayServer) getQuote(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))

	if refresh, _ := strconv.ParseBool(c.Query("refresh")); refresh {
		q, err := s.source.RefreshQuote(c.Request.Context(), symbol)
		if errors.Is(err, helpers.ErrUntrackedSymbol) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, q)
		return
	}

	q, ok := s.source.Quote(symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no quote for " + symbol})
		return
	}
	c.JSON(http.StatusOK, q)
}

// -----------------------------------------------------------------------------

func (s *RelayServer) getRecentTrades(c *gin.Context) {
	limit := defaultTradeLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = min(n, maxTradeLimit)
	}

	switch c.DefaultQuery("source", "session") {
	case "session":
		c.JSON(http.StatusOK, s.source.RecentTrades(limit))
	case "journal":
		trades, err := s.source.JournalTrades(limit)
		switch {
		case errors.Is(err, helpers.ErrJournalDisabled):
			c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
		case err != nil:
			s.Logger.Error("Journal read failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "journal read failed"})
		default:
			if trades == nil {
				trades = []models.MJournalTrade{}
			}
			c.JSON(http.StatusOK, trades)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be session or journal"})
	}
}

// -----------------------------------------------------------------------------

func (s *RelayServer) getBotStatus(c *gin.Context) {
	if s.bot == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "bot control disabled"})
		return
	}
	status, err := s.bot.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

// -----------------------------------------------------------------------------

func (s *RelayServer) postBot(start bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.bot == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "bot control disabled"})
			return
		}
		var (
			resp models.MBotControlResponse
			err  error
		)
		if start {
			resp, err = s.bot.Start(c.Request.Context())
		} else {
			resp, err = s.bot.Stop(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
