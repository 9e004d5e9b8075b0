package storage

// sqlite.go — audit trail de la sesión de copy-trading.
//
// Estrategia:
//   - `orders`: una fila por net trade procesado (enviado o rechazado).
//     Insert-only: el histórico de decisiones nunca se reescribe.
//   - `session_trades`: los trades crudos capturados de cada wallet fuente.
//     UNIQUE sobre tx_hash → reinsertar el mismo tape es un no-op, así un
//     reinicio del copier no duplica filas.
//   - Prune automático al arrancar: session_trades > 30d. Las órdenes se
//     conservan completas; son el insumo del reporte diario.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/polycopy/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por net trade procesado: orden enviada o rechazo razonado
CREATE TABLE IF NOT EXISTS orders (
    id            TEXT PRIMARY KEY,
    recorded_at   DATETIME NOT NULL,
    source_wallet TEXT     NOT NULL,
    source_tx     TEXT,
    condition_id  TEXT     NOT NULL,
    outcome       TEXT,
    title         TEXT,
    side          TEXT     NOT NULL,
    source_size   REAL     NOT NULL DEFAULT 0,
    source_price  REAL     NOT NULL DEFAULT 0,
    strategy      TEXT,
    param         REAL     NOT NULL DEFAULT 0,
    target_usd    REAL     NOT NULL DEFAULT 0,
    shares        REAL     NOT NULL DEFAULT 0,
    price         REAL     NOT NULL DEFAULT 0,
    order_type    TEXT,
    submitted     INTEGER  NOT NULL DEFAULT 0,
    clob_order_id TEXT,
    status        TEXT,
    rejected      TEXT,
    error         TEXT
);

-- Tape crudo capturado por los monitores, por wallet fuente
CREATE TABLE IF NOT EXISTS session_trades (
    tx_hash      TEXT PRIMARY KEY,
    wallet       TEXT     NOT NULL,
    condition_id TEXT     NOT NULL,
    token_id     TEXT,
    outcome      TEXT,
    title        TEXT,
    side         TEXT     NOT NULL,
    size         REAL     NOT NULL DEFAULT 0,
    price        REAL     NOT NULL DEFAULT 0,
    traded_at    DATETIME NOT NULL,
    captured_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_at     ON orders(recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_wallet ON orders(source_wallet);
CREATE INDEX IF NOT EXISTS idx_trades_wallet ON session_trades(wallet, traded_at DESC);
`

const retentionTrades = 30 * 24 * time.Hour // tape crudo: 30 días

// SQLiteStore implementa ports.AuditStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia el tape antiguo.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveOrderRecord inserta el registro de un net trade procesado.
func (s *SQLiteStore) SaveOrderRecord(ctx context.Context, rec domain.OrderRecord) error {
	submitted := 0
	if rec.Submitted {
		submitted = 1
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO orders
			(id, recorded_at, source_wallet, source_tx, condition_id, outcome,
			 title, side, source_size, source_price, strategy, param, target_usd,
			 shares, price, order_type, submitted, clob_order_id, status,
			 rejected, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.RecordedAt.UTC(), rec.SourceWallet, rec.SourceTxHash,
		rec.ConditionID, rec.Outcome, rec.Title, string(rec.Side),
		rec.SourceSize, rec.SourcePrice, rec.Strategy, rec.Param,
		rec.TargetUSD, rec.Shares, rec.Price, rec.OrderType,
		submitted, rec.CLOBOrderID, rec.Status, rec.Rejected, rec.Error,
	); err != nil {
		return fmt.Errorf("storage.SaveOrderRecord: %w", err)
	}
	return nil
}

// SaveSessionTrades inserta los trades crudos de un ciclo de polling.
// Reinsertar un tx_hash ya conocido es un no-op.
func (s *SQLiteStore) SaveSessionTrades(ctx context.Context, wallet string, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveSessionTrades: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO session_trades
			(tx_hash, wallet, condition_id, token_id, outcome, title, side,
			 size, price, traded_at, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tx_hash) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveSessionTrades: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, t := range trades {
		if _, err := stmt.ExecContext(ctx,
			t.DedupKey(), wallet, t.ConditionID, t.TokenID, t.Outcome,
			t.Title, string(t.Side), t.Size, t.Price, t.Timestamp.UTC(), now,
		); err != nil {
			return fmt.Errorf("storage.SaveSessionTrades: insert %s: %w", t.DedupKey(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveSessionTrades: commit: %w", err)
	}
	return nil
}

// GetOrderHistory devuelve los registros de órdenes del rango dado,
// más recientes primero.
func (s *SQLiteStore) GetOrderHistory(ctx context.Context, from, to time.Time) ([]domain.OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recorded_at, source_wallet, source_tx, condition_id,
		       outcome, title, side, source_size, source_price, strategy,
		       param, target_usd, shares, price, order_type, submitted,
		       clob_order_id, status, rejected, error
		FROM orders
		WHERE recorded_at BETWEEN ? AND ?
		ORDER BY recorded_at DESC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetOrderHistory: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.OrderRecord
	for rows.Next() {
		var rec domain.OrderRecord
		var side string
		var submitted int

		if err := rows.Scan(
			&rec.ID, &rec.RecordedAt, &rec.SourceWallet, &rec.SourceTxHash,
			&rec.ConditionID, &rec.Outcome, &rec.Title, &side,
			&rec.SourceSize, &rec.SourcePrice, &rec.Strategy, &rec.Param,
			&rec.TargetUSD, &rec.Shares, &rec.Price, &rec.OrderType,
			&submitted, &rec.CLOBOrderID, &rec.Status, &rec.Rejected, &rec.Error,
		); err != nil {
			return nil, fmt.Errorf("storage.GetOrderHistory: scan row: %w", err)
		}

		rec.Side = domain.Side(side)
		rec.Submitted = submitted == 1
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// GetDailySummary agrega las órdenes de un día natural (UTC).
func (s *SQLiteStore) GetDailySummary(ctx context.Context, day time.Time) (domain.DailySummary, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	summary := domain.DailySummary{Day: dayStart}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(submitted), 0),
		       COALESCE(SUM(CASE WHEN rejected != '' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN submitted = 1 AND side = 'BUY'  THEN target_usd ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN submitted = 1 AND side = 'SELL' THEN shares * price ELSE 0 END), 0)
		FROM orders
		WHERE recorded_at >= ? AND recorded_at < ?
	`, dayStart, dayEnd).Scan(
		&summary.Orders, &summary.Submitted, &summary.Rejected,
		&summary.BuyUSD, &summary.SellUSD,
	)
	if err != nil {
		return domain.DailySummary{}, fmt.Errorf("storage.GetDailySummary: %w", err)
	}
	return summary, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// pruneOld elimina el tape crudo antiguo para mantener la DB ligera.
func (s *SQLiteStore) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionTrades)
	s.db.ExecContext(ctx, `DELETE FROM session_trades WHERE captured_at < ?`, cutoff)
}
