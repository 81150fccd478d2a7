// package database provides the benchtrend server with a wrapper around an
// sql database connection pool and the public methods to persist benchmark
// history into that database and read it back
package database

import (
	"database/sql"
	"fmt"
	"regexp"

	// the injected postgres and sqlite interface implementations for Go SQL
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	// DriverPostgres selects lib/pq
	DriverPostgres = "postgres"

	// DriverSQLite selects the pure Go sqlite driver
	DriverSQLite = "sqlite"
)

var placeholderRegex = regexp.MustCompile(`\$\d+`)

// Config holds the connection parameters for NewBenchDbHandler. Path is only
// used by sqlite; the rest only by postgres.
type Config struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
}

// BenchDbHandler is a wrapper around *sql.DB. It provides a single point
// where internal methods and queries can access the benchmark history
// database connection pool.
type BenchDbHandler struct {
	db     *sql.DB
	driver string
}

// NewBenchDbHandler opens and pings a database based on the provided
// connection parameters. An empty driver means postgres.
func NewBenchDbHandler(cfg Config) (*BenchDbHandler, error) {
	var driver, connectString string

	switch cfg.Driver {
	case "", DriverPostgres:
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "require"
		}

		driver = DriverPostgres
		connectString = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s", cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite database requires a path")
		}

		driver = DriverSQLite
		connectString = cfg.Path
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	// Acquire the *sql.DB instance
	dbPool, err := sql.Open(driver, connectString)
	if err != nil {
		return nil, fmt.Errorf("could not open database connection: %w", err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer
		dbPool.SetMaxOpenConns(1)
	}

	// ping once to ensure the database values and connection are valid and working
	err = dbPool.Ping()
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("could not ping database: %w", err)
	}

	return &BenchDbHandler{
		db:     dbPool,
		driver: driver,
	}, nil
}

// Close closes the underlying connection pool
func (h *BenchDbHandler) Close() error {
	return h.db.Close()
}

// rebind rewrites postgres style "$N" placeholders into the "?" placeholders
// sqlite binds positionally. Every query passes its arguments in placeholder
// order.
func (h *BenchDbHandler) rebind(query string) string {
	if h.driver != DriverSQLite {
		return query
	}

	return placeholderRegex.ReplaceAllString(query, "?")
}

// EnsureSchema creates the benchmark history tables when they do not exist
func (h *BenchDbHandler) EnsureSchema() error {
	id := "BIGSERIAL PRIMARY KEY"
	if h.driver == DriverSQLite {
		id = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS repos (
			id ` + id + `,
			git_url TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS series (
			id ` + id + `,
			repo_id BIGINT NOT NULL REFERENCES repos(id),
			name TEXT NOT NULL,
			UNIQUE (repo_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id ` + id + `,
			series_id BIGINT NOT NULL REFERENCES series(id),
			commit_id TEXT NOT NULL,
			date BIGINT NOT NULL,
			tool TEXT NOT NULL DEFAULT '',
			record TEXT NOT NULL,
			record_hash TEXT NOT NULL,
			occurrence INTEGER NOT NULL,
			UNIQUE (series_id, record_hash, occurrence)
		)`,
		`CREATE TABLE IF NOT EXISTS measurements (
			id ` + id + `,
			snapshot_id BIGINT NOT NULL REFERENCES snapshots(id),
			name TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			unit TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, stmt := range statements {
		if _, err := h.db.Exec(stmt); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	return nil
}

// GetRepositoryID queries the id of a repository based on its git URL
func (h *BenchDbHandler) GetRepositoryID(repoURL string) (int64, error) {
	var id int64
	err := h.db.QueryRow(h.rebind("SELECT id FROM repos WHERE git_url=$1"), repoURL).Scan(&id)
	return id, err
}

// InsertRepository inserts a git repository by its git_url
func (h *BenchDbHandler) InsertRepository(repoURL string) (int64, error) {
	var id int64
	err := h.db.QueryRow(h.rebind("INSERT INTO repos(git_url) VALUES($1) RETURNING id"), repoURL).Scan(&id)
	return id, err
}

// GetSeriesID queries the id of a named benchmark series of a repository
func (h *BenchDbHandler) GetSeriesID(repoID int64, name string) (int64, error) {
	var id int64
	err := h.db.QueryRow(h.rebind("SELECT id FROM series WHERE repo_id=$1 AND name=$2"), repoID, name).Scan(&id)
	return id, err
}

// InsertSeries inserts a named benchmark series of a repository
func (h *BenchDbHandler) InsertSeries(repoID int64, name string) (int64, error) {
	var id int64
	err := h.db.QueryRow(h.rebind("INSERT INTO series(repo_id, name) VALUES($1, $2) RETURNING id"), repoID, name).Scan(&id)
	return id, err
}

// ListSeries returns the series names stored for a repository, sorted
func (h *BenchDbHandler) ListSeries(repoURL string) ([]string, error) {
	rows, err := h.db.Query(h.rebind(`SELECT s.name FROM series s
		JOIN repos r ON r.id = s.repo_id
		WHERE r.git_url=$1
		ORDER BY s.name`), repoURL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// CountSnapshots returns how many snapshots are stored for a series
func (h *BenchDbHandler) CountSnapshots(repoURL string, series string) (int, error) {
	var n int
	err := h.db.QueryRow(h.rebind(`SELECT COUNT(*) FROM snapshots sn
		JOIN series s ON s.id = sn.series_id
		JOIN repos r ON r.id = s.repo_id
		WHERE r.git_url=$1 AND s.name=$2`), repoURL, series).Scan(&n)
	return n, err
}
