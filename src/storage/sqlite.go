package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

// createTables keeps earlier sessions; the journal is append-only.
func (d *AsyncSQLiteDB) createTables() error {
	// SQLite types: INTEGER for int64, TEXT for decimals and JSON
	query := `
		CREATE TABLE IF NOT EXISTS trade_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			received_at INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			action TEXT,
			quantity INTEGER,
			price TEXT,
			payload TEXT NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trade_events: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS connection_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			at INTEGER NOT NULL,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create connection_events: %w", err)
	}

	d.Logger.Info("SQLite journal ready at %s", d.Config.Storage.DBPath)
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) RecordTrade(sessionID string, trade models.MTradeExecution, at time.Time) error {
	payload, err := json.Marshal(trade)
	if err != nil {
		return err
	}
	_, err = d.DB.Exec(`
		INSERT INTO trade_events (session_id, received_at, symbol, action, quantity, price, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sessionID, at.UTC().UnixMilli(), trade.Symbol, trade.Action, trade.Quantity, trade.Price.String(), string(payload))
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) RecordConnectionState(sessionID string, from, to models.MConnectionState, at time.Time) error {
	_, err := d.DB.Exec(`
		INSERT INTO connection_events (session_id, at, from_state, to_state)
		VALUES (?, ?, ?, ?)
	`, sessionID, at.UTC().UnixMilli(), from.String(), to.String())
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) RecentTrades(limit int) ([]models.MJournalTrade, error) {
	if limit <= 0 {
		return []models.MJournalTrade{}, nil
	}
	rows, err := d.DB.Query(`
		SELECT session_id, received_at, payload FROM trade_events
		ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.MJournalTrade{}
	for rows.Next() {
		var (
			rec     models.MJournalTrade
			millis  int64
			payload string
		)
		if err := rows.Scan(&rec.SessionID, &millis, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &rec.Trade); err != nil {
			return nil, fmt.Errorf("corrupt trade payload: %w", err)
		}
		rec.ReceivedAt = time.UnixMilli(millis).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

// ConnectionEvents returns the transitions recorded for one session, oldest first.
func (d *AsyncSQLiteDB) ConnectionEvents(sessionID string) ([][2]string, error) {
	rows, err := d.DB.Query(`
		SELECT from_state, to_state FROM connection_events
		WHERE session_id = ? ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var ev [2]string
		if err := rows.Scan(&ev[0], &ev[1]); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
