// Package indexer walks a repository tree and keeps the vector index in
// sync with it, replacing internal/reconcile's placeholder body with the
// real reconciliation logic grounded on
// original_source/backend/scripts/init_embeddings.py (rglob + encode_batch
// + upsert) plus deletion of stale rows so index cardinality tracks the
// tree exactly, per the "Vector Index cardinality" invariant.
package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/metalagman/normareg/internal/embedding"
	"github.com/metalagman/normareg/internal/vectorindex"
)

// DefaultExtensions is the indexer's default supported-file set.
var DefaultExtensions = []string{".py"}

// vendoredDirs are skipped outright, mirroring common vendored/build paths
// that the original's plain rglob("*.py") never had to filter (the fake
// Pix repo carries no vendor tree) but a general Go indexer must.
var vendoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
}

// Indexer walks repoPath, encodes each matching file's content, and keeps
// the vector index's row set equal to the files currently on disk.
type Indexer struct {
	index      *vectorindex.Index
	encoder    embedding.Encoder
	extensions map[string]bool
	log        zerolog.Logger
}

// New constructs an Indexer. An empty extensions slice falls back to
// DefaultExtensions.
func New(index *vectorindex.Index, encoder embedding.Encoder, extensions []string, log zerolog.Logger) *Indexer {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		set[ext] = true
	}
	return &Indexer{index: index, encoder: encoder, extensions: set, log: log}
}

// Result summarizes one indexer cycle.
type Result struct {
	Indexed int
	Deleted int
	Skipped int
}

// Run walks repoPath, upserts every matching file's embedding, and deletes
// index rows for files that no longer exist under repoPath.
func (ix *Indexer) Run(ctx context.Context, repoPath string) (Result, error) {
	var res Result

	seen := make(map[string]bool)

	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if vendoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !ix.extensions[strings.ToLower(filepath.Ext(path))] {
			res.Skipped++
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			ix.log.Warn().Err(readErr).Str("path", path).Msg("skipping unreadable file")
			res.Skipped++
			return nil
		}
		if isBinary(content) {
			res.Skipped++
			return nil
		}

		relPath, relErr := filepath.Rel(repoPath, path)
		if relErr != nil {
			relPath = path
		}
		seen[relPath] = true

		vec := ix.encoder.Encode(string(content))
		if err := ix.index.Upsert(ctx, relPath, string(content), vec); err != nil {
			return fmt.Errorf("upsert %s: %w", relPath, err)
		}
		res.Indexed++
		ix.log.Debug().Str("path", relPath).Msg("indexed file")
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("walk %s: %w", repoPath, err)
	}

	existing, err := ix.index.ListFilePaths(ctx)
	if err != nil {
		return res, fmt.Errorf("list indexed paths: %w", err)
	}
	for _, path := range existing {
		if seen[path] {
			continue
		}
		if err := ix.index.Delete(ctx, path); err != nil {
			return res, fmt.Errorf("delete stale %s: %w", path, err)
		}
		res.Deleted++
		ix.log.Debug().Str("path", path).Msg("removed stale index entry")
	}

	ix.log.Info().
		Int("indexed", res.Indexed).
		Int("deleted", res.Deleted).
		Int("skipped", res.Skipped).
		Msg("indexer cycle complete")
	return res, nil
}

// isBinary is a cheap heuristic: a NUL byte in the first 512 bytes marks
// the file as non-text, mirroring the "skipping binary" requirement
// without pulling in a MIME-sniffing dependency for a single byte check.
func isBinary(content []byte) bool {
	n := len(content)
	if n > 512 {
		n = 512
	}
	for i := 0; i < n; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}
