package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/cordonhq/cordon/internal/models"
)

const defaultListLimit = 100

// SQLiteRecorder persists verdicts to a local SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteRecorder opens (or creates) the verdict database under dataDir.
func NewSQLiteRecorder(dataDir string) (*SQLiteRecorder, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "verdicts.db")

	// Pragmas ride the DSN so every pool connection is configured.
	dsn := dbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}.Encode()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open verdict database: %w", err)
	}

	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	r := &SQLiteRecorder{db: db, dbPath: dbPath}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize verdict schema: %w", err)
	}

	log.Info().Str("dbPath", dbPath).Msg("Verdict audit store opened")
	return r, nil
}

func (r *SQLiteRecorder) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS verdicts (
		action_id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		decision TEXT NOT NULL,
		composite REAL NOT NULL,
		sri_infrastructure REAL NOT NULL,
		sri_policy REAL NOT NULL,
		sri_historical REAL NOT NULL,
		sri_cost REAL NOT NULL,
		agent_id TEXT NOT NULL,
		action_type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		violated_policies TEXT,
		reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_verdicts_timestamp ON verdicts(timestamp);
	CREATE INDEX IF NOT EXISTS idx_verdicts_decision ON verdicts(decision);
	CREATE INDEX IF NOT EXISTS idx_verdicts_agent ON verdicts(agent_id);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Record implements Recorder.
func (r *SQLiteRecorder) Record(ctx context.Context, verdict *models.Verdict) error {
	entry := entryFromVerdict(verdict)

	violated, err := json.Marshal(entry.ViolatedPolicies)
	if err != nil {
		return fmt.Errorf("encode violated policies: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO verdicts (
			action_id, timestamp, decision, composite,
			sri_infrastructure, sri_policy, sri_historical, sri_cost,
			agent_id, action_type, resource_id, violated_policies, reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ActionID, entry.Timestamp.UnixMilli(), entry.Decision, entry.Composite,
		entry.Infrastructure, entry.Policy, entry.Historical, entry.Cost,
		entry.AgentID, entry.ActionType, entry.ResourceID, string(violated), entry.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert verdict %s: %w", entry.ActionID, err)
	}
	return nil
}

// List implements Recorder, newest first.
func (r *SQLiteRecorder) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT action_id, timestamp, decision, composite,
			sri_infrastructure, sri_policy, sri_historical, sri_cost,
			agent_id, action_type, resource_id, violated_policies, reason
		FROM verdicts ORDER BY timestamp DESC, action_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get implements Recorder.
func (r *SQLiteRecorder) Get(ctx context.Context, actionID string) (*Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT action_id, timestamp, decision, composite,
			sri_infrastructure, sri_policy, sri_historical, sri_cost,
			agent_id, action_type, resource_id, violated_policies, reason
		FROM verdicts WHERE action_id = ?`, actionID)
	if err != nil {
		return nil, fmt.Errorf("query verdict %s: %w", actionID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	entry, err := scanEntry(rows)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Close implements Recorder.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry      Entry
		tsMillis   int64
		violated   sql.NullString
		nullReason sql.NullString
	)
	if err := rows.Scan(
		&entry.ActionID, &tsMillis, &entry.Decision, &entry.Composite,
		&entry.Infrastructure, &entry.Policy, &entry.Historical, &entry.Cost,
		&entry.AgentID, &entry.ActionType, &entry.ResourceID, &violated, &nullReason,
	); err != nil {
		return Entry{}, fmt.Errorf("scan verdict row: %w", err)
	}
	entry.Timestamp = time.UnixMilli(tsMillis).UTC()
	entry.Reason = nullReason.String
	if violated.Valid && violated.String != "" && violated.String != "null" {
		if err := json.Unmarshal([]byte(violated.String), &entry.ViolatedPolicies); err != nil {
			return Entry{}, fmt.Errorf("decode violated policies: %w", err)
		}
	}
	return entry, nil
}
