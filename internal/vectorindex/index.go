package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/metalagman/normareg/internal/embedding"
)

// Match is a single search result, mirroring the original service's
// ImpactedFile projection (backend/services/vector_store.py's
// search_similar) before it is folded into state.ImpactedFile.
type Match struct {
	FilePath       string
	RelevanceScore float64
	Snippet        string
}

// Index is the PostgreSQL-backed vector store. Since no vector-search or
// ANN library exists in the retrieved corpus, cosine similarity and the
// coarse simhash bucketing below are implemented directly in Go over rows
// read through the standard database/sql driver — see DESIGN.md.
type Index struct {
	db *sql.DB
}

// New wraps an already-migrated database handle.
func New(db *sql.DB) *Index {
	return &Index{db: db}
}

// Upsert inserts or updates the embedding for a file, grounded on
// vector_store.py's upsert_embedding (PostgreSQL ON CONFLICT DO UPDATE).
func (idx *Index) Upsert(ctx context.Context, filePath, content string, vec []float64) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	sh := simhash(vec)

	_, err = idx.db.ExecContext(ctx, `
		INSERT INTO embeddings (file_path, content, embedding, simhash, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (file_path) DO UPDATE
		SET content = EXCLUDED.content, embedding = EXCLUDED.embedding,
		    simhash = EXCLUDED.simhash, updated_at = now()`,
		filePath, content, data, sh)
	if err != nil {
		return fmt.Errorf("upsert embedding for %s: %w", filePath, err)
	}
	return nil
}

// Delete removes the embedding for a file that no longer exists on disk,
// required by the indexer's reconcile-and-prune cycle so the index's file
// set never drifts from the repository's.
func (idx *Index) Delete(ctx context.Context, filePath string) error {
	if _, err := idx.db.ExecContext(ctx, `DELETE FROM embeddings WHERE file_path = $1`, filePath); err != nil {
		return fmt.Errorf("delete embedding for %s: %w", filePath, err)
	}
	return nil
}

// ListFilePaths returns every indexed file path, used by the indexer to
// detect stale rows.
func (idx *Index) ListFilePaths(ctx context.Context) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT file_path FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("list file paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan file path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Count returns the number of embeddings currently stored.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := idx.db.QueryRowContext(ctx, `SELECT count(*) FROM embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

// Get retrieves a single embedding row by path.
func (idx *Index) Get(ctx context.Context, filePath string) (*Match, error) {
	row := idx.db.QueryRowContext(ctx, `SELECT file_path, content FROM embeddings WHERE file_path = $1`, filePath)
	var m Match
	if err := row.Scan(&m.FilePath, &m.Snippet); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get embedding for %s: %w", filePath, err)
	}
	m.RelevanceScore = 1
	return &m, nil
}

type candidateRow struct {
	filePath string
	content  string
	vec      []float64
}

// Search returns up to topK files whose embedding has cosine similarity
// >= threshold to queryVec, ordered by descending similarity — the same
// contract as vector_store.py's search_similar.
//
// Results are always ranked over every row in the table rather than just
// the query's simhash bucket: a near-duplicate vector can differ in one of
// the sign bits simhash keys on and land in a different bucket, which
// would otherwise let a bucket-only search diverge from the brute-force
// top-k the accuracy expectation requires at realistic index sizes.
func (idx *Index) Search(ctx context.Context, queryVec []float64, topK int, threshold float64) ([]Match, error) {
	all, err := idx.allCandidates(ctx)
	if err != nil {
		return nil, err
	}
	matches := rankCandidates(all, queryVec, threshold)

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (idx *Index) allCandidates(ctx context.Context) ([]candidateRow, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT file_path, content, embedding FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("query all candidates: %w", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func scanCandidates(rows *sql.Rows) ([]candidateRow, error) {
	var out []candidateRow
	for rows.Next() {
		var c candidateRow
		var raw []byte
		if err := rows.Scan(&c.filePath, &c.content, &raw); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if err := json.Unmarshal(raw, &c.vec); err != nil {
			return nil, fmt.Errorf("unmarshal embedding for %s: %w", c.filePath, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func rankCandidates(candidates []candidateRow, queryVec []float64, threshold float64) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score := embedding.CosineSimilarity(queryVec, c.vec)
		if score < threshold {
			continue
		}
		snippet := c.content
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		matches = append(matches, Match{FilePath: c.filePath, RelevanceScore: score, Snippet: snippet})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].RelevanceScore != matches[j].RelevanceScore {
			return matches[i].RelevanceScore > matches[j].RelevanceScore
		}
		return matches[i].FilePath < matches[j].FilePath // deterministic tie-break
	})
	return matches
}

// simhash buckets a vector by the sign pattern of its first 63 dimensions
// into a single int64, giving cheap approximate nearest-neighbor locality:
// vectors pointing in similar directions collide into the same bucket far
// more often than dissimilar ones.
func simhash(vec []float64) int64 {
	var h int64
	n := len(vec)
	if n > 63 {
		n = 63
	}
	for i := 0; i < n; i++ {
		if vec[i] > 0 {
			h |= 1 << uint(i)
		}
	}
	return h
}
