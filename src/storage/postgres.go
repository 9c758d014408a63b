package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"

	_ "github.com/lib/pq"
)

var unsafeIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresDB keeps each deployment's journal in a schema named after the
// application.
func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	name := strings.Trim(unsafeIdent.ReplaceAllString(strings.ToLower(cfg.Name), "_"), "_")
	if name == "" {
		return nil, fmt.Errorf("cannot derive a schema name from %q", cfg.Name)
	}
	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB journal initialized (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."trade_events" (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			received_at TIMESTAMPTZ NOT NULL,
			symbol TEXT NOT NULL,
			action TEXT,
			quantity BIGINT,
			price NUMERIC,
			payload JSONB NOT NULL
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trade_events: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."connection_events" (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			at TIMESTAMPTZ NOT NULL,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create connection_events: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) RecordTrade(sessionID string, trade models.MTradeExecution, at time.Time) error {
	payload, err := json.Marshal(trade)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO "%s"."trade_events" (session_id, received_at, symbol, action, quantity, price, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, d.Schema)
	_, err = d.DB.Exec(query, sessionID, at.UTC(), trade.Symbol, trade.Action, trade.Quantity, trade.Price.String(), string(payload))
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) RecordConnectionState(sessionID string, from, to models.MConnectionState, at time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."connection_events" (session_id, at, from_state, to_state)
		VALUES ($1, $2, $3, $4)
	`, d.Schema)
	_, err := d.DB.Exec(query, sessionID, at.UTC(), from.String(), to.String())
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) RecentTrades(limit int) ([]models.MJournalTrade, error) {
	if limit <= 0 {
		return []models.MJournalTrade{}, nil
	}
	query := fmt.Sprintf(`
		SELECT session_id, received_at, payload FROM "%s"."trade_events"
		ORDER BY id DESC LIMIT $1
	`, d.Schema)
	rows, err := d.DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.MJournalTrade{}
	for rows.Next() {
		var (
			rec     models.MJournalTrade
			payload []byte
		)
		if err := rows.Scan(&rec.SessionID, &rec.ReceivedAt, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &rec.Trade); err != nil {
			return nil, fmt.Errorf("corrupt trade payload: %w", err)
		}
		rec.ReceivedAt = rec.ReceivedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
