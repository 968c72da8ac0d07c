package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pagerank/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "pagerank.db"

// timestampLayout is fixed width so that text comparison orders runs in time.
const timestampLayout = "2006-01-02 15:04:05.000000000"

// RankDB stores ranking runs in SQLite.
type RankDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL switches the database to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the database in dbDir.
func Open(dbDir string, opts Options) (*RankDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		mode = "rw"
		if _, err := os.Stat(dbPath); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
			}
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	}

	// Foreign keys are set in the DSN so that every pooled connection has them.
	db, err := sql.Open("sqlite", dbPath+"?mode="+mode+"&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	rdb := &RankDB{db: db, dbPath: dbPath}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := rdb.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return rdb, nil
}

// Path returns the path of the database file.
func (r *RankDB) Path() string {
	return r.dbPath
}

// Close closes the database.
func (r *RankDB) Close() error {
	return r.db.Close()
}

func (r *RankDB) createTables(ctx context.Context) error {
	schema := `
	-- One row per ranking run.
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		corpus TEXT NOT NULL,
		source TEXT NOT NULL,
		fingerprint TEXT,
		ranked_at TEXT NOT NULL,
		page_count INTEGER NOT NULL,
		link_count INTEGER NOT NULL,
		dangling_count INTEGER NOT NULL,
		damping REAL NOT NULL,
		methods TEXT NOT NULL,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_corpus ON runs(corpus, ranked_at);

	-- Per-page ranks, for trends across runs.
	CREATE TABLE IF NOT EXISTS ranks (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		method TEXT NOT NULL,
		page TEXT NOT NULL,
		rank REAL NOT NULL,
		PRIMARY KEY (run_id, method, page)
	);

	CREATE INDEX IF NOT EXISTS idx_ranks_page ON ranks(page, method);
	`
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// SaveRun stores report and all of its ranks in one transaction.
func (r *RankDB) SaveRun(ctx context.Context, report *model.RankReport) (err error) {
	if report.ID == "" {
		return ErrMissingRunID
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	methods := make([]string, 0, len(report.Results))
	for _, res := range report.Results {
		methods = append(methods, string(res.Method))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, corpus, source, fingerprint, ranked_at, page_count, link_count,
		dangling_count, damping, methods, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID,
		report.Corpus,
		string(report.Source),
		report.Fingerprint,
		formatTimestamp(report.DateRanked),
		report.PageCount,
		report.LinkCount,
		report.DanglingCount,
		report.Damping,
		strings.Join(methods, ","),
		report.ErrorMessage,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ranks (run_id, method, page, rank) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare rank insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range report.Results {
		for _, pr := range res.Ranks {
			if _, err = stmt.ExecContext(ctx, report.ID, string(res.Method), pr.Page, pr.Rank); err != nil {
				return fmt.Errorf("failed to save rank of %s: %w", pr.Page, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// LatestRun returns the most recent run of corpus, or nil if there is none.
func (r *RankDB) LatestRun(ctx context.Context, corpus string) (*model.RankReport, error) {
	var reportJSON string
	err := r.db.QueryRowContext(ctx, `
	SELECT report_json FROM runs
	WHERE corpus = ?
	ORDER BY ranked_at DESC, rowid DESC
	LIMIT 1
	`, corpus).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return decodeReport(reportJSON)
}

// GetRunByID returns the run with the given ID, or nil if there is none.
func (r *RankDB) GetRunByID(ctx context.Context, id string) (*model.RankReport, error) {
	var reportJSON string
	err := r.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return decodeReport(reportJSON)
}

// RunMetadata summarizes a stored run without its ranks.
type RunMetadata struct {
	ID          string
	Corpus      string
	Source      model.SourceType
	Fingerprint string
	RankedAt    time.Time
	PageCount   int
	LinkCount   int
	Damping     float64
	Methods     []model.Method
	Error       string
}

// RunHistory lists the runs of corpus, newest first.
func (r *RankDB) RunHistory(ctx context.Context, corpus string) ([]RunMetadata, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, corpus, source, fingerprint, ranked_at, page_count, link_count, damping, methods, error
	FROM runs
	WHERE corpus = ?
	ORDER BY ranked_at DESC, rowid DESC
	`, corpus)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	results := make([]RunMetadata, 0)
	for rows.Next() {
		var (
			meta        RunMetadata
			source      string
			fingerprint sql.NullString
			rankedAt    string
			methods     string
			errMsg      sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Corpus, &source, &fingerprint, &rankedAt,
			&meta.PageCount, &meta.LinkCount, &meta.Damping, &methods, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.Source = model.SourceType(source)
		meta.Fingerprint = fingerprint.String
		meta.RankedAt = parseTimestamp(rankedAt)
		meta.Error = errMsg.String
		if methods != "" {
			for _, m := range strings.Split(methods, ",") {
				meta.Methods = append(meta.Methods, model.Method(m))
			}
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// ListCorpora returns every corpus with at least one stored run.
func (r *RankDB) ListCorpora(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT corpus FROM runs ORDER BY corpus`)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpora: %w", err)
	}
	defer rows.Close()

	corpora := make([]string, 0)
	for rows.Next() {
		var corpus string
		if err := rows.Scan(&corpus); err != nil {
			return nil, fmt.Errorf("failed to scan corpus: %w", err)
		}
		corpora = append(corpora, corpus)
	}
	return corpora, rows.Err()
}

// PageRankPoint is the rank of one page in one stored run.
type PageRankPoint struct {
	RunID    string
	RankedAt time.Time
	Rank     float64
}

// PageHistory returns the rank of page in every run of corpus that used
// method, oldest first.
func (r *RankDB) PageHistory(ctx context.Context, corpus, page string, method model.Method) ([]PageRankPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT runs.id, runs.ranked_at, ranks.rank
	FROM ranks
	JOIN runs ON runs.id = ranks.run_id
	WHERE runs.corpus = ? AND ranks.page = ? AND ranks.method = ?
	ORDER BY runs.ranked_at ASC, runs.rowid ASC
	`, corpus, page, string(method))
	if err != nil {
		return nil, fmt.Errorf("failed to get page history: %w", err)
	}
	defer rows.Close()

	points := make([]PageRankPoint, 0)
	for rows.Next() {
		var (
			point    PageRankPoint
			rankedAt string
		)
		if err := rows.Scan(&point.RunID, &rankedAt, &point.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan rank: %w", err)
		}
		point.RankedAt = parseTimestamp(rankedAt)
		points = append(points, point)
	}
	return points, rows.Err()
}

// DeleteRun removes a run and its ranks. Deleting an unknown ID is not an error.
func (r *RankDB) DeleteRun(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

func decodeReport(reportJSON string) (*model.RankReport, error) {
	var report model.RankReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats are tried in order when reading timestamps back.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
