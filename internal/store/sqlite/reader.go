package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"prediction-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to the prediction and training history.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadPredictions returns the stored predictions for a symbol after the
// given timestamp, ordered by timestamp ascending.
func (r *Reader) ReadPredictions(symbol string, afterTS int64, limit int) ([]model.PredictionData, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`
		SELECT symbol, ts, signal, bullish, bearish, neutral, confidence, risk_score,
		       target_short, target_medium, target_long, timeframe, model_version
		FROM predictions
		WHERE symbol = ? AND ts > ?
		ORDER BY ts ASC
		LIMIT ?
	`, symbol, afterTS, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query predictions: %w", err)
	}
	defer rows.Close()

	var preds []model.PredictionData
	for rows.Next() {
		var p model.PredictionData
		var tsUnix int64
		var signal string
		if err := rows.Scan(
			&p.Symbol, &tsUnix, &signal,
			&p.BullishProbability, &p.BearishProbability, &p.NeutralProbability,
			&p.Confidence, &p.RiskScore,
			&p.PriceTarget.Short, &p.PriceTarget.Medium, &p.PriceTarget.Long,
			&p.Timeframe, &p.ModelVersion,
		); err != nil {
			return nil, fmt.Errorf("sqlite scan prediction: %w", err)
		}
		p.Signal = model.Signal(signal)
		p.Timestamp = time.Unix(tsUnix, 0).UTC()
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// ReadLatestPrediction returns the newest stored prediction for a symbol,
// or nil if none exists.
func (r *Reader) ReadLatestPrediction(symbol string) (*model.PredictionData, error) {
	preds, err := r.readNewest(symbol, 1)
	if err != nil || len(preds) == 0 {
		return nil, err
	}
	return &preds[0], nil
}

func (r *Reader) readNewest(symbol string, limit int) ([]model.PredictionData, error) {
	rows, err := r.db.Query(`
		SELECT symbol, ts, signal, bullish, bearish, neutral, confidence, risk_score,
		       target_short, target_medium, target_long, timeframe, model_version
		FROM predictions
		WHERE symbol = ?
		ORDER BY ts DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query newest predictions: %w", err)
	}
	defer rows.Close()

	var preds []model.PredictionData
	for rows.Next() {
		var p model.PredictionData
		var tsUnix int64
		var signal string
		if err := rows.Scan(
			&p.Symbol, &tsUnix, &signal,
			&p.BullishProbability, &p.BearishProbability, &p.NeutralProbability,
			&p.Confidence, &p.RiskScore,
			&p.PriceTarget.Short, &p.PriceTarget.Medium, &p.PriceTarget.Long,
			&p.Timeframe, &p.ModelVersion,
		); err != nil {
			return nil, fmt.Errorf("sqlite scan prediction: %w", err)
		}
		p.Signal = model.Signal(signal)
		p.Timestamp = time.Unix(tsUnix, 0).UTC()
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

// ReadTrainingHistory returns the newest training records, oldest first.
func (r *Reader) ReadTrainingHistory(limit int) ([]model.TrainingMetrics, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`
		SELECT epoch, loss, val_loss, accuracy, f1_score, ts
		FROM (
			SELECT epoch, loss, val_loss, accuracy, f1_score, ts, id
			FROM training_metrics ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query training metrics: %w", err)
	}
	defer rows.Close()

	var out []model.TrainingMetrics
	for rows.Next() {
		var m model.TrainingMetrics
		var tsUnix int64
		if err := rows.Scan(&m.Epoch, &m.Loss, &m.ValidationLoss, &m.Accuracy, &m.F1Score, &tsUnix); err != nil {
			return nil, fmt.Errorf("sqlite scan training metrics: %w", err)
		}
		m.Timestamp = time.Unix(tsUnix, 0).UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
