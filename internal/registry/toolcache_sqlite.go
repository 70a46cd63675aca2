package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/richard-senior/mcp/internal/logger"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// SQLiteToolCache is an opt-in, durable ToolResultCache. It generalizes the
// teacher's pkg/util/sqlite.go stub (an empty SQLiteClient with a no-op
// Execute) into a real fingerprint->result table.
type SQLiteToolCache struct {
	db *sql.DB
}

// NewSQLiteToolCache opens (creating if necessary) a sqlite database at path
// and ensures its schema exists.
func NewSQLiteToolCache(path string) (*SQLiteToolCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("toolcache: open %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS tool_cache (
	fingerprint TEXT PRIMARY KEY,
	result      BLOB NOT NULL,
	expires_at  INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("toolcache: migrate: %w", err)
	}
	return &SQLiteToolCache{db: db}, nil
}

func (c *SQLiteToolCache) Close() error { return c.db.Close() }

func (c *SQLiteToolCache) Get(fingerprint string) (*protocol.ToolResult, bool) {
	var blob []byte
	var expiresAt int64
	row := c.db.QueryRow(`SELECT result, expires_at FROM tool_cache WHERE fingerprint = ?`, fingerprint)
	if err := row.Scan(&blob, &expiresAt); err != nil {
		return nil, false
	}
	if time.Now().Unix() > expiresAt {
		if _, err := c.db.Exec(`DELETE FROM tool_cache WHERE fingerprint = ?`, fingerprint); err != nil {
			logger.Warn("toolcache: failed to evict expired entry", err)
		}
		return nil, false
	}
	var result protocol.ToolResult
	if err := json.Unmarshal(blob, &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (c *SQLiteToolCache) Set(fingerprint string, result *protocol.ToolResult, ttl time.Duration) {
	blob, err := json.Marshal(result)
	if err != nil {
		logger.Warn("toolcache: failed to marshal result for cache", err)
		return
	}
	expiresAt := time.Now().Add(ttl).Unix()
	_, err = c.db.Exec(
		`INSERT INTO tool_cache (fingerprint, result, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET result = excluded.result, expires_at = excluded.expires_at`,
		fingerprint, blob, expiresAt,
	)
	if err != nil {
		logger.Warn("toolcache: failed to write cache entry", err)
	}
}
