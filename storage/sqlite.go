package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"housescout/models"
)

// SQLiteStore is the operational store: search run history, structured run
// logs, saved searches and the operator command queue.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_runs (
		id INTEGER PRIMARY KEY,
		query TEXT,
		sites TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		results_found INTEGER DEFAULT 0,
		results_ranked INTEGER DEFAULT 0,
		urls_validated INTEGER DEFAULT 0,
		cache_hit BOOLEAN DEFAULT FALSE,
		primary_engine BOOLEAN DEFAULT FALSE,
		fallback_engine BOOLEAN DEFAULT FALSE,
		errors_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS op_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT
	);

	CREATE TABLE IF NOT EXISTS saved_searches (
		id INTEGER PRIMARY KEY,
		query TEXT NOT NULL,
		sites TEXT,
		max_results INTEGER DEFAULT 0,
		location TEXT,
		max_price INTEGER DEFAULT 0,
		flat_type TEXT,
		top_k INTEGER DEFAULT 0,
		enabled BOOLEAN DEFAULT TRUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_status ON search_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON op_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_saved_enabled ON saved_searches(enabled);
	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.SearchRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO search_runs (query, sites, started_at, status, cache_hit, primary_engine, fallback_engine)
		VALUES (?, ?, ?, ?, FALSE, ?, ?)`,
		run.Query, run.Sites, run.StartedAt, run.Status, run.PrimaryEngine, run.FallbackEngine)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.SearchRun) error {
	_, err := s.db.Exec(`
		UPDATE search_runs SET finished_at = ?, status = ?, results_found = ?,
			results_ranked = ?, urls_validated = ?, cache_hit = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.ResultsFound,
		run.ResultsRanked, run.URLsValidated, run.CacheHit, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) GetRecentRuns(limit int) ([]models.SearchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, query, sites, started_at, finished_at, status, results_found,
			results_ranked, urls_validated, cache_hit, primary_engine, fallback_engine, errors_count
		FROM search_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.SearchRun
	for rows.Next() {
		var run models.SearchRun
		if err := rows.Scan(&run.ID, &run.Query, &run.Sites, &run.StartedAt, &run.FinishedAt,
			&run.Status, &run.ResultsFound, &run.ResultsRanked, &run.URLsValidated,
			&run.CacheHit, &run.PrimaryEngine, &run.FallbackEngine, &run.ErrorsCount); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message string) error {
	_, err := s.db.Exec(`
		INSERT INTO op_logs (run_id, timestamp, level, message)
		VALUES (?, ?, ?, ?)`,
		runID, time.Now(), level, message)
	return err
}

func (s *SQLiteStore) CreateSavedSearch(search *models.SavedSearch) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO saved_searches (query, sites, max_results, location, max_price, flat_type, top_k, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		search.Query, search.Sites, search.MaxResults, search.Location,
		search.MaxPrice, search.FlatType, search.TopK, search.Enabled)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) GetSavedSearch(id int64) (*models.SavedSearch, error) {
	row := s.db.QueryRow(`
		SELECT id, query, sites, max_results, location, max_price, flat_type, top_k, enabled, created_at
		FROM saved_searches WHERE id = ?`, id)

	var search models.SavedSearch
	err := row.Scan(&search.ID, &search.Query, &search.Sites, &search.MaxResults,
		&search.Location, &search.MaxPrice, &search.FlatType, &search.TopK,
		&search.Enabled, &search.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &search, nil
}

func (s *SQLiteStore) ListEnabledSearches() ([]models.SavedSearch, error) {
	rows, err := s.db.Query(`
		SELECT id, query, sites, max_results, location, max_price, flat_type, top_k, enabled, created_at
		FROM saved_searches WHERE enabled = TRUE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var searches []models.SavedSearch
	for rows.Next() {
		var search models.SavedSearch
		if err := rows.Scan(&search.ID, &search.Query, &search.Sites, &search.MaxResults,
			&search.Location, &search.MaxPrice, &search.FlatType, &search.TopK,
			&search.Enabled, &search.CreatedAt); err != nil {
			return nil, err
		}
		searches = append(searches, search)
	}
	return searches, rows.Err()
}

func (s *SQLiteStore) SetSearchEnabled(id int64, enabled bool) error {
	_, err := s.db.Exec(`UPDATE saved_searches SET enabled = ? WHERE id = ?`, enabled, id)
	return err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) EnqueueCommand(command models.CommandType, params *models.CommandParams) error {
	var raw []byte
	if params != nil {
		var err error
		raw, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`INSERT INTO commands (command, params) VALUES (?, ?)`, command, raw)
	return err
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// ResetAllData clears all operational tables.
func (s *SQLiteStore) ResetAllData() error {
	tables := []string{"op_logs", "search_runs", "saved_searches", "commands"}
	for _, table := range tables {
		if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
