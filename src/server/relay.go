package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"dashboard-sync/src/interfaces"
	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"
	"dashboard-sync/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// RelayServer
// -----------------------------------------------------------------------------

// RelayServer exposes the synchronized store to local consumers over REST
// and a websocket hub. It only reads the store; it never merges.
type RelayServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine
	server *http.Server

	source interfaces.IStateSource
	bot    interfaces.IBotControl // optional
	clock  *utils.MarketClock     // optional

	// WebSocket clients
	clients    map[*consumer]struct{}
	broadcast  chan *models.MStoreSnapshot // Buffered queue
	register   chan *consumer
	unregister chan *consumer
	commands   chan consumerCommand
	quit       chan struct{}
	hubOnce    sync.Once
	stopOnce   sync.Once

	clientCount int
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewRelayServer(cfg *models.MConfig, source interfaces.IStateSource, bot interfaces.IBotControl, clock *utils.MarketClock, log *logger.Logger) *RelayServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &RelayServer{
		Config:  cfg,
		Logger:  log,
		engine:  gin.New(),
		source:  source,
		bot:     bot,
		clock:   clock,
		clients: make(map[*consumer]struct{}),
		// every frame carries the full state, so a burst only needs the newest
		broadcast:  make(chan *models.MStoreSnapshot, 256),
		register:   make(chan *consumer),
		unregister: make(chan *consumer),
		commands:   make(chan consumerCommand, 16),
		quit:       make(chan struct{}),
	}
	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *RelayServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/state", s.getState)
	api.GET("/health", s.getHealth)
	api.GET("/quotes/:symbol", s.getQuote)
	api.GET("/trades/recent", s.getRecentTrades)
	api.GET("/bot/status", s.getBotStatus)
	api.POST("/bot/start", s.postBot(true))
	api.POST("/bot/stop", s.postBot(false))

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the routes, mostly for httptest.
func (s *RelayServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and serves until Stop. It blocks like gin's Run.
func (s *RelayServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Relay.Host, s.Config.Relay.Port)
	s.Logger.Info("Starting relay on %s", addr)

	s.startHub()

	s.stateMutex.Lock()
	s.server = &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	srv := s.server
	s.stateMutex.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *RelayServer) startHub() {
	s.hubOnce.Do(func() { go s.handleWebsockets() })
}

// -----------------------------------------------------------------------------

func (s *RelayServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.quit)

		s.stateMutex.RLock()
		srv := s.server
		s.stateMutex.RUnlock()
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = srv.Shutdown(ctx)
		}
		s.Logger.Info("Relay stopped")
	})
	return err
}
