// Package state holds the synchronized in-memory model of the dashboard and
// the merge rules that keep it current.
//
// All writes go through the Store's writer lock, so merges are totally ordered
// and each one becomes visible to readers in a single swap.
package state

import (
	"errors"
	"reflect"
	"sort"
	"sync"

	"dashboard-sync/src/helpers"
	"dashboard-sync/src/models"
)

var (
	ErrAlreadyBootstrapped = errors.New("store already bootstrapped")
	ErrNotBootstrapped     = errors.New("store not bootstrapped")
)

// -----------------------------------------------------------------------------

type storeData struct {
	portfolio *models.MPortfolioSummary
	positions map[string]models.MPosition
	quotes    map[string]models.MQuote
	symbols   []models.MSymbol
	botStatus *models.MBotStatus
}

func newStoreData() *storeData {
	return &storeData{
		positions: make(map[string]models.MPosition),
		quotes:    make(map[string]models.MQuote),
	}
}

// -----------------------------------------------------------------------------

func (d *storeData) clone() *storeData {
	out := &storeData{
		positions: make(map[string]models.MPosition, len(d.positions)),
		quotes:    make(map[string]models.MQuote, len(d.quotes)),
	}
	if d.portfolio != nil {
		p := *d.portfolio
		out.portfolio = &p
	}
	if d.botStatus != nil {
		b := *d.botStatus
		out.botStatus = &b
	}
	for k, v := range d.positions {
		out.positions[k] = v
	}
	for k, v := range d.quotes {
		out.quotes[k] = v
	}
	if d.symbols != nil {
		out.symbols = append([]models.MSymbol(nil), d.symbols...)
	}
	return out
}

// -----------------------------------------------------------------------------
// Store
// -----------------------------------------------------------------------------

// Store is the synchronized state container. Consumers only read from it;
// the snapshot loader (once) and the merger (repeatedly) write to it.
type Store struct {
	writeMu sync.Mutex // serializes writers and the order of notifications

	stateMutex   sync.RWMutex
	data         *storeData
	connState    models.MConnectionState
	version      uint64
	bootstrapped bool

	subMu       sync.Mutex
	subscribers map[uint64]func(models.MStoreSnapshot)
	nextSubID   uint64
}

// -----------------------------------------------------------------------------

func NewStore() *Store {
	return &Store{
		data:        newStoreData(),
		subscribers: make(map[uint64]func(models.MStoreSnapshot)),
	}
}

// -----------------------------------------------------------------------------

// Subscribe registers fn to be called with the merged snapshot after every
// effective change, in mutation order. fn runs on the writer's goroutine and
// must not call back into Store mutations.
func (s *Store) Subscribe(fn func(models.MStoreSnapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
		})
	}
}

// -----------------------------------------------------------------------------

func (s *Store) notify(snap models.MStoreSnapshot) {
	s.subMu.Lock()
	ids := make([]uint64, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(models.MStoreSnapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subscribers[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// -----------------------------------------------------------------------------
// Mutation entry points
// -----------------------------------------------------------------------------

// Bootstrap installs the snapshot loaded at session start. It may run once.
func (s *Store) Bootstrap(snap *models.MSnapshot) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.stateMutex.RLock()
	done := s.bootstrapped
	s.stateMutex.RUnlock()
	if done {
		return ErrAlreadyBootstrapped
	}

	positions, err := indexPositions(snap.Positions)
	if err != nil {
		return err
	}
	next := newStoreData()
	for _, q := range snap.Quotes {
		if _, dup := next.quotes[q.Symbol]; dup {
			return helpers.NewMutationInvariantViolation(q.Symbol, "duplicate quote in snapshot")
		}
		next.quotes[q.Symbol] = q
	}
	summary := snap.Portfolio
	bot := snap.BotStatus
	next.portfolio = &summary
	next.positions = positions
	next.botStatus = &bot
	next.symbols = append([]models.MSymbol(nil), snap.Symbols...)

	s.stateMutex.Lock()
	s.data = next
	s.bootstrapped = true
	s.version++
	out := s.snapshotLocked()
	s.stateMutex.Unlock()

	s.notify(out)
	return nil
}

// -----------------------------------------------------------------------------

// commit applies fn to a private copy of the current state and publishes it
// in one swap. No change means no version bump and no notification.
func (s *Store) commit(fn func(d *storeData) error) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.stateMutex.RLock()
	cur := s.data
	done := s.bootstrapped
	s.stateMutex.RUnlock()
	if !done {
		return false, ErrNotBootstrapped
	}

	next := cur.clone()
	if err := fn(next); err != nil {
		return false, err
	}
	if reflect.DeepEqual(cur, next) {
		return false, nil
	}

	s.stateMutex.Lock()
	s.data = next
	s.version++
	out := s.snapshotLocked()
	s.stateMutex.Unlock()

	s.notify(out)
	return true, nil
}

// -----------------------------------------------------------------------------

// SetConnectionState records the stream's connection state for display.
func (s *Store) SetConnectionState(state models.MConnectionState) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.stateMutex.Lock()
	if s.connState == state {
		s.stateMutex.Unlock()
		return
	}
	s.connState = state
	s.version++
	out := s.snapshotLocked()
	s.stateMutex.Unlock()

	s.notify(out)
}

// -----------------------------------------------------------------------------
// Read access
// -----------------------------------------------------------------------------

func (s *Store) snapshotLocked() models.MStoreSnapshot {
	d := s.data.clone()
	return models.MStoreSnapshot{
		Portfolio:       d.portfolio,
		Positions:       d.positions,
		Quotes:          d.quotes,
		Symbols:         d.symbols,
		BotStatus:       d.botStatus,
		ConnectionState: s.connState,
		Version:         s.version,
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() models.MStoreSnapshot {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.snapshotLocked()
}

// -----------------------------------------------------------------------------

func (s *Store) Portfolio() (models.MPortfolioSummary, bool) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	if s.data.portfolio == nil {
		return models.MPortfolioSummary{}, false
	}
	return *s.data.portfolio, true
}

func (s *Store) Position(symbol string) (models.MPosition, bool) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	p, ok := s.data.positions[symbol]
	return p, ok
}

func (s *Store) Quote(symbol string) (models.MQuote, bool) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	q, ok := s.data.quotes[symbol]
	return q, ok
}

// Tracks reports whether symbol is on the tracked list or held in a position.
func (s *Store) Tracks(symbol string) bool {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	if _, ok := s.data.positions[symbol]; ok {
		return true
	}
	for _, sym := range s.data.symbols {
		if sym.Symbol == symbol {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// Positions returns the open positions sorted by symbol.
func (s *Store) Positions() []models.MPosition {
	s.stateMutex.RLock()
	out := make([]models.MPosition, 0, len(s.data.positions))
	for _, p := range s.data.positions {
		out = append(out, p)
	}
	s.stateMutex.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Quotes returns every quote seen this session sorted by symbol.
func (s *Store) Quotes() []models.MQuote {
	s.stateMutex.RLock()
	out := make([]models.MQuote, 0, len(s.data.quotes))
	for _, q := range s.data.quotes {
		out = append(out, q)
	}
	s.stateMutex.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// -----------------------------------------------------------------------------

func (s *Store) ConnectionState() models.MConnectionState {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.connState
}

func (s *Store) Version() uint64 {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.version
}

func (s *Store) Bootstrapped() bool {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.bootstrapped
}

// -----------------------------------------------------------------------------

// indexPositions keys positions by symbol, rejecting duplicates.
func indexPositions(list []models.MPosition) (map[string]models.MPosition, error) {
	out := make(map[string]models.MPosition, len(list))
	for _, p := range list {
		if p.Symbol == "" {
			return nil, helpers.NewMutationInvariantViolation(p.Symbol, "position without symbol")
		}
		if _, dup := out[p.Symbol]; dup {
			return nil, helpers.NewMutationInvariantViolation(p.Symbol, "duplicate position")
		}
		out[p.Symbol] = p
	}
	return out, nil
}
