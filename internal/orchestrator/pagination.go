package orchestrator

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/refrain2333/legal-retrieval/internal/fusion"
)

// paginationCache persists the final fused case list for Load-more-cases
// (§6): "reuse the cached fused list keyed by query within a short TTL
// rather than rerun the pipeline." Backed by SQLite the way the teacher
// persists its own query metrics (internal/telemetry/store.go), rather than
// an in-process map, so the cache survives process restarts within its TTL.
type paginationCache struct {
	db  *sql.DB
	ttl time.Duration
}

const paginationSchema = `
CREATE TABLE IF NOT EXISTS pagination_cache (
	query_key  TEXT PRIMARY KEY,
	cases_json TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// newPaginationCache opens (creating if absent) a SQLite database at path
// and ensures its schema exists.
func newPaginationCache(path string, ttl time.Duration) (*paginationCache, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open pagination cache: %w", err)
	}
	if _, err := db.Exec(paginationSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create pagination cache schema: %w", err)
	}
	return &paginationCache{db: db, ttl: ttl}, nil
}

// queryKey hashes the normalized query text into the cache's primary key,
// mirroring internal/llm.cacheKey's sha256-keying approach.
func queryKey(q string) string {
	sum := sha256.Sum256([]byte(q))
	return hex.EncodeToString(sum[:])
}

// Put stores the full fused case list for a query, replacing any prior
// entry.
func (p *paginationCache) Put(q string, cases []fusion.Fused) error {
	data, err := json.Marshal(cases)
	if err != nil {
		return fmt.Errorf("marshal cached cases: %w", err)
	}
	_, err = p.db.Exec(
		`INSERT INTO pagination_cache (query_key, cases_json, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(query_key) DO UPDATE SET cases_json = excluded.cases_json, created_at = excluded.created_at`,
		queryKey(q), string(data), time.Now(),
	)
	return err
}

// Get returns the cached fused case list for a query if present and still
// within TTL.
func (p *paginationCache) Get(q string) ([]fusion.Fused, bool, error) {
	var (
		data      string
		createdAt time.Time
	)
	err := p.db.QueryRow(
		`SELECT cases_json, created_at FROM pagination_cache WHERE query_key = ?`,
		queryKey(q),
	).Scan(&data, &createdAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read pagination cache: %w", err)
	}
	if time.Since(createdAt) > p.ttl {
		return nil, false, nil
	}

	var cases []fusion.Fused
	if err := json.Unmarshal([]byte(data), &cases); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached cases: %w", err)
	}
	return cases, true, nil
}

func (p *paginationCache) Close() error {
	return p.db.Close()
}
