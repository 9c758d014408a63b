// Package synchronizer wires the snapshot loader, the stream manager and the
// merger around one state store, in the order the data flow requires:
// bootstrap first, then live merges.
package synchronizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dashboard-sync/src/helpers"
	"dashboard-sync/src/interfaces"
	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"
	"dashboard-sync/src/state"
	"dashboard-sync/src/utils"

	"github.com/google/uuid"
)

var (
	ErrStopped         = errors.New("synchronizer stopped")
	ErrStartInProgress = errors.New("synchronizer start in progress")
)

// -----------------------------------------------------------------------------
// Synchronizer
// -----------------------------------------------------------------------------

type Synchronizer struct {
	Logger *logger.Logger

	loader  interfaces.ISnapshotLoader
	stream  interfaces.IStreamManager
	journal interfaces.IJournal // optional

	store     *state.Store
	merger    *state.Merger
	errors    *helpers.ErrorHandler
	trades    *utils.RingBuffer[models.MJournalTrade]
	sessionID string
	now       func() time.Time

	mu       sync.Mutex
	starting bool
	started  bool
	stopped  bool
}

// -----------------------------------------------------------------------------

// New builds a synchronizer. journal may be nil.
func New(cfg *models.MConfig, loader interfaces.ISnapshotLoader, stream interfaces.IStreamManager, journal interfaces.IJournal, log *logger.Logger) *Synchronizer {
	s := &Synchronizer{
		Logger:    log,
		loader:    loader,
		stream:    stream,
		journal:   journal,
		store:     state.NewStore(),
		merger:    state.NewMerger(log.Named("Merger")),
		errors:    helpers.NewErrorHandler(log),
		trades:    utils.NewRingBuffer[models.MJournalTrade](cfg.TradeFeedSize),
		sessionID: uuid.NewString(),
		now:       time.Now,
	}
	s.merger.OnTrade = s.handleTrade
	return s
}

// -----------------------------------------------------------------------------

// Start loads the snapshot, bootstraps the store and only then starts the
// stream. A snapshot failure is returned as is and leaves the stream idle, so
// the caller may call Start again.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.stopped:
		s.mu.Unlock()
		return ErrStopped
	case s.started:
		s.mu.Unlock()
		return nil
	case s.starting:
		s.mu.Unlock()
		return ErrStartInProgress
	}
	s.starting = true
	s.mu.Unlock()

	err := s.start(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if err != nil {
		return err
	}
	if s.stopped {
		// Stop ran while bootstrapping; the stream must not outlive it.
		s.stream.Stop()
		return ErrStopped
	}
	s.started = true
	return nil
}

func (s *Synchronizer) start(ctx context.Context) error {
	s.Logger.Info("Starting session %s", s.sessionID)
	if !s.store.Bootstrapped() {
		snap, err := s.loader.LoadSnapshot(ctx)
		if err != nil {
			s.errors.Handle(err, "bootstrap")
			return err
		}
		if err := s.store.Bootstrap(snap); err != nil {
			s.errors.Handle(err, "bootstrap")
			return err
		}
	}

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return ErrStopped
	}
	return s.stream.Start(s.handleMessage, s.handleStateChange)
}

// -----------------------------------------------------------------------------

// Stop ends the stream. Merges already applied stay in the store.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.stream.Stop()
	s.Logger.Info("Session %s stopped", s.sessionID)
}

// -----------------------------------------------------------------------------
// Consumer API
// -----------------------------------------------------------------------------

func (s *Synchronizer) Store() *state.Store {
	return s.store
}

func (s *Synchronizer) Snapshot() models.MStoreSnapshot {
	return s.store.Snapshot()
}

func (s *Synchronizer) Quote(symbol string) (models.MQuote, bool) {
	return s.store.Quote(symbol)
}

func (s *Synchronizer) Subscribe(fn func(models.MStoreSnapshot)) (unsubscribe func()) {
	return s.store.Subscribe(fn)
}

func (s *Synchronizer) SessionID() string {
	return s.sessionID
}

// RecentTrades returns up to n trade notifications of this session, newest first.
func (s *Synchronizer) RecentTrades(n int) []models.MJournalTrade {
	return s.trades.GetLatest(n)
}

// JournalTrades reads persisted trades across sessions, newest first.
func (s *Synchronizer) JournalTrades(limit int) ([]models.MJournalTrade, error) {
	if s.journal == nil {
		return nil, helpers.ErrJournalDisabled
	}
	return s.journal.RecentTrades(limit)
}

// ErrorCounts returns handled errors by kind.
func (s *Synchronizer) ErrorCounts() map[string]int {
	return s.errors.Counts()
}

// -----------------------------------------------------------------------------

// RefreshQuote fetches one quote and merges it like a quote_update message.
// Only tracked or held symbols are refreshed; quotes are never removed, so
// anything else would stay in the store for the whole session.
func (s *Synchronizer) RefreshQuote(ctx context.Context, symbol string) (models.MQuote, error) {
	if !s.store.Tracks(symbol) {
		return models.MQuote{}, fmt.Errorf("%w: %s", helpers.ErrUntrackedSymbol, symbol)
	}
	q, err := s.loader.FetchQuote(ctx, symbol)
	if err != nil {
		return models.MQuote{}, err
	}
	msg := models.MStreamMessage{Kind: models.KindQuoteUpdate, Type: models.MessageTypeQuoteUpdate, Quote: &q}
	if err := s.merger.Apply(s.store, msg); err != nil {
		s.errors.Handle(err, "quote refresh")
		return models.MQuote{}, err
	}
	return q, nil
}

// -----------------------------------------------------------------------------
// Stream callbacks
// -----------------------------------------------------------------------------

func (s *Synchronizer) handleMessage(raw []byte) {
	msg, err := s.merger.Decode(raw)
	if err != nil {
		s.errors.Handle(err, "stream decode")
		return
	}
	if err := s.merger.Apply(s.store, msg); err != nil {
		s.errors.Handle(err, "merge "+msg.Type)
	}
}

// -----------------------------------------------------------------------------

func (s *Synchronizer) handleStateChange(from, to models.MConnectionState) {
	s.store.SetConnectionState(to)
	if to == models.ConnectionClosed {
		s.Logger.Warning("Stream lost, showing last merged state until reconnect")
	}
	if s.journal != nil {
		if err := s.journal.RecordConnectionState(s.sessionID, from, to, s.now()); err != nil {
			s.Logger.Error("Journal connection event failed: %v", err)
		}
	}
}

// -----------------------------------------------------------------------------

func (s *Synchronizer) handleTrade(trade models.MTradeExecution) {
	rec := models.MJournalTrade{SessionID: s.sessionID, ReceivedAt: s.now().UTC(), Trade: trade}
	s.trades.Append(rec)
	if s.journal != nil {
		if err := s.journal.RecordTrade(s.sessionID, trade, rec.ReceivedAt); err != nil {
			s.Logger.Error("Journal trade failed: %v", err)
		}
	}
}
