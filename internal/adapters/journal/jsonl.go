package journal

// jsonl.go — journals append-only en disco, una línea JSON por registro.
//
// Dos ficheros separados: el de órdenes (decisiones de ejecución) y el de
// sesión (tape crudo capturado). Ambos rotan por tamaño con lumberjack para
// que una sesión larga no llene el disco.

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alejandrodnm/polycopy/internal/domain"
)

const (
	ordersFile  = "orders.jsonl"
	sessionFile = "session_trades.jsonl"

	maxSizeMB  = 50 // por fichero antes de rotar
	maxBackups = 5
)

// sessionLine es el formato en disco de un trade capturado.
type sessionLine struct {
	CapturedAt  time.Time   `json:"captured_at"`
	Wallet      string      `json:"wallet"`
	ConditionID string      `json:"condition_id"`
	TokenID     string      `json:"token_id,omitempty"`
	Outcome     string      `json:"outcome,omitempty"`
	Title       string      `json:"title,omitempty"`
	Side        domain.Side `json:"side"`
	Size        float64     `json:"size"`
	Price       float64     `json:"price"`
	TradedAt    time.Time   `json:"traded_at"`
	TxHash      string      `json:"tx_hash,omitempty"`
}

// FileJournal implementa ports.Journal sobre ficheros JSONL rotados.
type FileJournal struct {
	mu      sync.Mutex
	orders  *lumberjack.Logger
	session *lumberjack.Logger
}

// NewFileJournal crea los journals bajo el directorio dado.
func NewFileJournal(dir string) *FileJournal {
	return &FileJournal{
		orders: &lumberjack.Logger{
			Filename:   filepath.Join(dir, ordersFile),
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
		},
		session: &lumberjack.Logger{
			Filename:   filepath.Join(dir, sessionFile),
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
		},
	}
}

// RecordOrder anexa el registro de un net trade procesado.
func (j *FileJournal) RecordOrder(rec domain.OrderRecord) error {
	return j.append(j.orders, rec)
}

// RecordTrade anexa un trade crudo capturado durante la sesión.
func (j *FileJournal) RecordTrade(t domain.Trade) error {
	return j.append(j.session, sessionLine{
		CapturedAt:  time.Now().UTC(),
		Wallet:      t.Wallet,
		ConditionID: t.ConditionID,
		TokenID:     t.TokenID,
		Outcome:     t.Outcome,
		Title:       t.Title,
		Side:        t.Side,
		Size:        t.Size,
		Price:       t.Price,
		TradedAt:    t.Timestamp,
		TxHash:      t.TxHash,
	})
}

// Close cierra ambos ficheros.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	errOrders := j.orders.Close()
	errSession := j.session.Close()
	if errOrders != nil {
		return errOrders
	}
	return errSession
}

func (j *FileJournal) append(w *lumberjack.Logger, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("journal.append: marshal: %w", err)
	}
	b = append(b, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("journal.append: write: %w", err)
	}
	return nil
}
