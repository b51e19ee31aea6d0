// Package sqlite provides a local-file VectorStore for air-gapped setups
// where no Chroma server is available. Embeddings are stored as blobs and
// scored with an exact brute-force cosine scan; there is no ANN index.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS passages (
	id        TEXT PRIMARY KEY,
	text      TEXT NOT NULL,
	metadata  TEXT NOT NULL DEFAULT '{}',
	embedding BLOB
);
CREATE INDEX IF NOT EXISTS idx_passages_metadata ON passages(metadata);
`

// Store keeps passages in a local SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if necessary) the passage database. If path is
// empty it defaults to ~/.afiq/data/passages.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".afiq", "data", "passages.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Add inserts or replaces passages with their embeddings.
func (s *Store) Add(ctx context.Context, hits []driven.VectorHit, embeddings [][]float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO passages (id, text, metadata, embedding) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, hit := range hits {
		metadata, err := json.Marshal(hit.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", hit.ID, err)
		}
		var embedding []byte
		if i < len(embeddings) {
			embedding = encodeVector(embeddings[i])
		}
		if _, err := stmt.ExecContext(ctx, hit.ID, hit.Text, string(metadata), embedding); err != nil {
			return fmt.Errorf("inserting %s: %w", hit.ID, err)
		}
	}
	return tx.Commit()
}

// Query scans every stored embedding and returns the n closest passages
// by cosine distance.
func (s *Store) Query(ctx context.Context, embedding []float32, n int, where map[string]string) ([]driven.VectorHit, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, text, metadata, embedding FROM passages")
	if err != nil {
		return nil, fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		hit, stored, err := scanPassage(rows)
		if err != nil {
			return nil, err
		}
		if !matches(hit.Metadata, where) {
			continue
		}
		hit.Distance = cosineDistance(embedding, stored)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passages: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits, nil
}

// Get fetches passages by metadata filter without ranking.
func (s *Store) Get(ctx context.Context, where map[string]string, limit int) ([]driven.VectorHit, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, text, metadata, embedding FROM passages ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		hit, _, err := scanPassage(rows)
		if err != nil {
			return nil, err
		}
		if !matches(hit.Metadata, where) {
			continue
		}
		hits = append(hits, hit)
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passages: %w", err)
	}
	return hits, nil
}

// Count returns the number of stored passages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return n, nil
}

// Metric reports cosine, the only metric this store computes.
func (s *Store) Metric() string {
	return "cosine"
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanPassage(rows *sql.Rows) (driven.VectorHit, []float32, error) {
	var (
		hit      driven.VectorHit
		metadata string
		blob     []byte
	)
	if err := rows.Scan(&hit.ID, &hit.Text, &metadata, &blob); err != nil {
		return hit, nil, fmt.Errorf("scanning passage: %w", err)
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &hit.Metadata); err != nil {
			return hit, nil, fmt.Errorf("decoding metadata for %s: %w", hit.ID, err)
		}
	}
	return hit, decodeVector(blob), nil
}

func matches(metadata, where map[string]string) bool {
	for k, v := range where {
		if !strings.EqualFold(metadata[k], v) {
			return false
		}
	}
	return true
}

// encodeVector packs float32 components little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf)%4 != 0 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

// cosineDistance is 1 minus cosine similarity; zero or mismatched vectors
// are treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
