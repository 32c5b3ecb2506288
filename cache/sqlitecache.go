package cache

import (
	"database/sql"
	"errors"
	"fmt"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

const createLoopConfigTable = `CREATE TABLE IF NOT EXISTS loop_config (
	ID TEXT PRIMARY KEY,
	Damping REAL NOT NULL,
	LoopBW REAL NOT NULL,
	SampleCount INTEGER NOT NULL,
	ErrorCriterion TEXT NOT NULL
);`

// SQLiteCache stores loop configurations in an SQLite database.
type SQLiteCache struct {
	*sql.DB
}

// NewSQLiteCache opens, and creates if needed, the cache database file.
func NewSQLiteCache(path string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	c, err := NewSQLiteCacheWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// NewSQLiteCacheWithDB creates a cache on an already opened database.
func NewSQLiteCacheWithDB(db *sql.DB) (*SQLiteCache, error) {
	if _, err := db.Exec(createLoopConfigTable); err != nil {
		return nil, fmt.Errorf("creating loop_config table: %w", err)
	}

	return &SQLiteCache{DB: db}, nil
}

// Load returns the configuration saved under id, or nil if there is none.
func (c *SQLiteCache) Load(id string) (*LoopConfig, error) {
	cfg := &LoopConfig{}

	err := c.QueryRow(
		`SELECT Damping, LoopBW, SampleCount, ErrorCriterion
		FROM loop_config WHERE ID = ?`, id,
	).Scan(&cfg.Damping, &cfg.LoopBW, &cfg.SampleCount, &cfg.ErrorCriterion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", id, err)
	}

	return cfg, nil
}

// Save stores the configuration under id, replacing any previous one.
func (c *SQLiteCache) Save(cfg LoopConfig, id string) error {
	_, err := c.Exec(
		`INSERT OR REPLACE INTO loop_config
		(ID, Damping, LoopBW, SampleCount, ErrorCriterion)
		VALUES (?, ?, ?, ?, ?)`,
		id, cfg.Damping, cfg.LoopBW, cfg.SampleCount, cfg.ErrorCriterion,
	)
	if err != nil {
		return fmt.Errorf("saving %s: %w", id, err)
	}

	return nil
}
