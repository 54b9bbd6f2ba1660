package storage

// sqlite.go: histórico de alertas y ciclos.
//
// Es solo auditoría: el pipeline escribe aquí pero nunca lee para decidir.
// La deduplicación y la caché de wallets viven en memoria y no sobreviven
// a un reinicio.
//
//   - `alerts`: una fila por alerta despachada (entregada o no).
//   - `cycles`: resumen ligero por ciclo.
//   - Prune automático al arrancar: cycles > 30d, alerts > 90d.
//
// Los tiempos se guardan como Unix milisegundos para comparar sin parsear.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrodnm/insiderbot/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por alerta despachada
CREATE TABLE IF NOT EXISTS alerts (
    id           TEXT PRIMARY KEY,
    sent_at      INTEGER NOT NULL,
    wallet       TEXT    NOT NULL,
    market_id    TEXT    NOT NULL,
    market_title TEXT,
    market_slug  TEXT,
    outcome      TEXT,
    side         TEXT,
    notional     REAL    NOT NULL DEFAULT 0,
    price        REAL    NOT NULL DEFAULT 0,
    confidence   INTEGER NOT NULL,
    signals      TEXT    NOT NULL DEFAULT '[]',
    trade_at     INTEGER NOT NULL,
    delivered    INTEGER NOT NULL DEFAULT 0
);

-- Resumen ligero por ciclo
CREATE TABLE IF NOT EXISTS cycles (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at     INTEGER NOT NULL,
    duration_ms    INTEGER NOT NULL DEFAULT 0,
    fetched        INTEGER NOT NULL DEFAULT 0,
    rejected       INTEGER NOT NULL DEFAULT 0,
    duplicates     INTEGER NOT NULL DEFAULT 0,
    new_trades     INTEGER NOT NULL DEFAULT 0,
    prefiltered    INTEGER NOT NULL DEFAULT 0,
    scored         INTEGER NOT NULL DEFAULT 0,
    alerts         INTEGER NOT NULL DEFAULT 0,
    wallet_errors  INTEGER NOT NULL DEFAULT 0,
    scoring_faults INTEGER NOT NULL DEFAULT 0,
    feed_error     INTEGER NOT NULL DEFAULT 0,
    interrupted    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_alerts_sent   ON alerts(sent_at DESC);
CREATE INDEX IF NOT EXISTS idx_alerts_wallet ON alerts(wallet);
CREATE INDEX IF NOT EXISTS idx_cycles_at     ON cycles(started_at DESC);
`

const (
	retentionCycles = 30 * 24 * time.Hour
	retentionAlerts = 90 * 24 * time.Hour
)

// SQLiteStorage implementa ports.AlertStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveAlert inserta una alerta. Un ID repetido se ignora.
func (s *SQLiteStorage) SaveAlert(ctx context.Context, rec domain.AlertRecord) error {
	signals, err := json.Marshal(rec.Signals)
	if err != nil {
		return fmt.Errorf("storage.SaveAlert: marshal signals: %w", err)
	}
	if rec.Signals == nil {
		signals = []byte("[]")
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts
			(id, sent_at, wallet, market_id, market_title, market_slug, outcome, side,
			 notional, price, confidence, signals, trade_at, delivered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.SentAt.UnixMilli(),
		rec.Wallet,
		rec.MarketID,
		rec.MarketTitle,
		rec.MarketSlug,
		rec.Outcome,
		string(rec.Side),
		rec.Notional,
		rec.Price,
		rec.Confidence,
		string(signals),
		rec.TradeAt.UnixMilli(),
		boolToInt(rec.Delivered),
	); err != nil {
		return fmt.Errorf("storage.SaveAlert: insert %s: %w", rec.ID, err)
	}
	return nil
}

// SaveCycle inserta el resumen de un ciclo.
func (s *SQLiteStorage) SaveCycle(ctx context.Context, st domain.CycleStats) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles
			(started_at, duration_ms, fetched, rejected, duplicates, new_trades, prefiltered,
			 scored, alerts, wallet_errors, scoring_faults, feed_error, interrupted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		st.StartedAt.UnixMilli(),
		st.Duration.Milliseconds(),
		st.Fetched,
		st.Rejected,
		st.Duplicates,
		st.New,
		st.Prefiltered,
		st.Scored,
		st.Alerts,
		st.WalletErrors,
		st.ScoringFaults,
		boolToInt(st.FeedError),
		boolToInt(st.Interrupted),
	); err != nil {
		return fmt.Errorf("storage.SaveCycle: insert: %w", err)
	}
	return nil
}

// GetHistory devuelve las alertas con sent_at en el rango dado, más recientes primero.
func (s *SQLiteStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sent_at, wallet, market_id, market_title, market_slug, outcome, side,
		       notional, price, confidence, signals, trade_at, delivered
		FROM alerts
		WHERE sent_at BETWEEN ? AND ?
		ORDER BY sent_at DESC
	`, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var records []domain.AlertRecord
	for rows.Next() {
		var (
			r                 domain.AlertRecord
			sentAt, tradeAt   int64
			side, signalsJSON string
			delivered         int
			title, slug, out  sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &sentAt, &r.Wallet, &r.MarketID, &title, &slug, &out, &side,
			&r.Notional, &r.Price, &r.Confidence, &signalsJSON, &tradeAt, &delivered,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(signalsJSON), &r.Signals); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: decode signals of %s: %w", r.ID, err)
		}

		r.SentAt = time.UnixMilli(sentAt).UTC()
		r.TradeAt = time.UnixMilli(tradeAt).UTC()
		r.MarketTitle = title.String
		r.MarketSlug = slug.String
		r.Outcome = out.String
		r.Side = domain.ParseSide(side)
		r.Delivered = delivered == 1
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountCycles devuelve cuántos ciclos hay registrados.
func (s *SQLiteStorage) CountCycles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage.CountCycles: %w", err)
	}
	return n, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina datos antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	now := time.Now()
	s.db.ExecContext(ctx, `DELETE FROM cycles WHERE started_at < ?`, now.Add(-retentionCycles).UnixMilli())
	s.db.ExecContext(ctx, `DELETE FROM alerts WHERE sent_at < ?`, now.Add(-retentionAlerts).UnixMilli())
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
