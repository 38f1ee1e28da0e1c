package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"prediction-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond

	// trainingKeepRows bounds the training table; it mirrors the in-memory
	// history cap with headroom for inspection across restarts.
	trainingKeepRows = 1000
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/predictions.db"
}

// Writer is a single-goroutine SQLite writer with transaction batching.
type Writer struct {
	db *sql.DB

	// OnCommit, when set, observes the duration of each batch commit.
	OnCommit func(d time.Duration)
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode
// and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS predictions (
			symbol        TEXT    NOT NULL,
			ts            INTEGER NOT NULL,
			signal        TEXT    NOT NULL,
			bullish       REAL    NOT NULL,
			bearish       REAL    NOT NULL,
			neutral       REAL    NOT NULL,
			confidence    REAL    NOT NULL,
			risk_score    REAL    NOT NULL,
			target_short  REAL,
			target_medium REAL,
			target_long   REAL,
			timeframe     TEXT,
			model_version TEXT,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS training_metrics (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			epoch         INTEGER NOT NULL,
			loss          REAL    NOT NULL,
			val_loss      REAL    NOT NULL,
			accuracy      REAL    NOT NULL,
			f1_score      REAL    NOT NULL,
			ts            INTEGER NOT NULL
		);
	`)
	return err
}

// Run reads predictions from predCh and inserts them in batched
// transactions. Flushes every batchSize predictions OR every flushDelay,
// whichever first. Blocks until ctx is cancelled or predCh is closed.
func (w *Writer) Run(ctx context.Context, predCh <-chan model.PredictionData) {
	batch := make([]model.PredictionData, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertBatch(batch); err != nil {
			log.Printf("[sqlite] batch insert error: %v", err)
		} else {
			elapsed := time.Since(start)
			if w.OnCommit != nil {
				w.OnCommit(elapsed)
			}
			log.Printf("[sqlite] committed %d predictions in %v", len(batch), elapsed)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case pred, ok := <-predCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, pred)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// insertBatch inserts a batch of predictions in a single transaction.
func (w *Writer) insertBatch(preds []model.PredictionData) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO predictions
			(symbol, ts, signal, bullish, bearish, neutral, confidence, risk_score,
			 target_short, target_medium, target_long, timeframe, model_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range preds {
		_, err := stmt.Exec(
			p.Symbol, p.Timestamp.Unix(), string(p.Signal),
			p.BullishProbability, p.BearishProbability, p.NeutralProbability,
			p.Confidence, p.RiskScore,
			p.PriceTarget.Short, p.PriceTarget.Medium, p.PriceTarget.Long,
			p.Timeframe, p.ModelVersion,
		)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// SaveTrainingMetrics appends one training record and prunes the table to
// its retention bound.
func (w *Writer) SaveTrainingMetrics(m *model.TrainingMetrics) error {
	_, err := w.db.Exec(
		`INSERT INTO training_metrics (epoch, loss, val_loss, accuracy, f1_score, ts) VALUES (?, ?, ?, ?, ?, ?)`,
		m.Epoch, m.Loss, m.ValidationLoss, m.Accuracy, m.F1Score, m.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite insert training: %w", err)
	}

	_, err = w.db.Exec(
		`DELETE FROM training_metrics WHERE id NOT IN (SELECT id FROM training_metrics ORDER BY id DESC LIMIT ?)`,
		trainingKeepRows,
	)
	if err != nil {
		log.Printf("[sqlite] prune training metrics warning: %v", err)
	}
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
