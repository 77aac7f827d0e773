package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oojn4/korika/internal/prediction"

	// sqlite driver (pure Go)
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02 15:04:05.000000000"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and runs
// migrations. Use ":memory:" for a private in-memory database.
func Open(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := ":memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("state store opened", slog.String("path", path))

	s := NewWithDB(db, logger)
	s.path = path
	return s, nil
}

// NewWithDB wraps an already migrated connection.
func NewWithDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// Path returns the database path the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveBatch stores a batch and its records in one transaction.
func (s *SQLiteStore) SaveBatch(ctx context.Context, summary prediction.BatchSummary, records []prediction.Record) (*StoredBatch, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	failed := summary.FailedFacilityIDs
	if failed == nil {
		failed = []int{}
	}
	failedJSON, err := json.Marshal(failed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode failed facilities: %w", err)
	}

	batch := &StoredBatch{
		ID:          uuid.New().String(),
		CreatedAt:   s.now().UTC(),
		Summary:     summary,
		Records:     records,
		RecordCount: len(records),
	}
	batch.Summary.FailedFacilityIDs = failed

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO batches (id, created_at, total_facilities, successful_predictions,
			failed_predictions, failed_facilities, summary_filename, record_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.CreatedAt.Format(timeLayout), summary.TotalFacilities,
		summary.SuccessfulPredictions, summary.FailedPredictions, string(failedJSON),
		summary.SummaryFilename, len(records),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert batch: %w", err)
	}

	for i, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO batch_records (batch_id, seq, facility_id, year, month, data)
			VALUES (?, ?, ?, ?, ?, ?)`,
			batch.ID, i, r.FacilityID, r.Year, r.Month, string(data),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}

	s.logger.Debug("batch saved",
		slog.String("id", batch.ID),
		slog.Int("records", len(records)))
	return batch, nil
}

const batchColumns = `id, created_at, total_facilities, successful_predictions,
	failed_predictions, failed_facilities, summary_filename, record_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (*StoredBatch, error) {
	var (
		b          StoredBatch
		createdAt  string
		failedJSON string
	)
	err := row.Scan(&b.ID, &createdAt, &b.Summary.TotalFacilities,
		&b.Summary.SuccessfulPredictions, &b.Summary.FailedPredictions,
		&failedJSON, &b.Summary.SummaryFilename, &b.RecordCount)
	if err != nil {
		return nil, err
	}

	b.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	b.Summary.FailedFacilityIDs = []int{}
	if err := json.Unmarshal([]byte(failedJSON), &b.Summary.FailedFacilityIDs); err != nil {
		return nil, fmt.Errorf("invalid failed_facilities: %w", err)
	}
	return &b, nil
}

// GetBatch returns a batch with its records in server order.
func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (*StoredBatch, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	b.Records, err = s.batchRecords(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// LatestBatch returns the most recently stored batch, or nil when the
// history is empty.
func (s *SQLiteStore) LatestBatch(ctx context.Context) (*StoredBatch, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM batches ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest batch: %w", err)
	}
	return s.GetBatch(ctx, id)
}

// ListBatches returns stored batches newest first, without records.
func (s *SQLiteStore) ListBatches(ctx context.Context, limit int) ([]StoredBatch, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	query := `SELECT ` + batchColumns + ` FROM batches ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []StoredBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}

// DeleteBatch removes a batch and its records.
func (s *SQLiteStore) DeleteBatch(ctx context.Context, id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM batch_records WHERE batch_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete batch records: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

// ResolveBatch finds a batch by full id or unique id prefix. An empty ref
// resolves to the latest batch; nil, nil means the history is empty.
func (s *SQLiteStore) ResolveBatch(ctx context.Context, ref string) (*StoredBatch, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return s.LatestBatch(ctx)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM batches WHERE id LIKE ? || '%' ESCAPE '\' LIMIT 2`, likeEscaper.Replace(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve batch: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to resolve batch: %w", err)
		}
		ids = append(ids, id)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to resolve batch: %w", err)
	}

	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return s.GetBatch(ctx, ids[0])
	default:
		return nil, fmt.Errorf("batch id prefix %q is ambiguous", ref)
	}
}

// likeEscaper makes a ref match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *SQLiteStore) batchRecords(ctx context.Context, batchID string) ([]prediction.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM batch_records WHERE batch_id = ? ORDER BY seq`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batch records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []prediction.Record{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var r prediction.Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
