package agents

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/metalagman/normareg/internal/embedding"
	"github.com/metalagman/normareg/internal/state"
	"github.com/metalagman/normareg/internal/vectorindex"
)

const codeReaderTopK = 10

// CodeReaderKeywordBoost, when true, retries a search that returned zero
// hits with the domain keywords "pix", "validação" and "chave" appended to
// the query. An explicit off-by-default tunable rather than silent
// always-on behavior (see DESIGN.md).
type CodeReaderKeywordBoost bool

// CodeReader generates a semantic search query from the RegulatoryModel and
// queries the vector index for the most relevant code files, grounded on
// code_reader_agent/_generate_search_query in code_reader.py. Unlike the
// original, a Vector Index failure here is non-fatal: it is logged and
// ImpactedFiles degrades to an empty list so downstream agents still run
// on the minimal path.
func CodeReader(ctx context.Context, enc embedding.Encoder, idx *vectorindex.Index, boost CodeReaderKeywordBoost, threshold float64, log zerolog.Logger, s *state.SharedState) error {
	if s.RegulatoryModel == nil {
		s.ImpactedFiles = []state.ImpactedFile{}
		return nil
	}

	query := generateSearchQuery(s.RegulatoryModel)

	queryVec := enc.Encode(query)

	matches, err := idx.Search(ctx, queryVec, codeReaderTopK, threshold)
	if err == nil && len(matches) == 0 && bool(boost) {
		boosted := query + " " + strings.Join([]string{"pix", "validação", "chave"}, " ")
		matches, err = idx.Search(ctx, enc.Encode(boosted), codeReaderTopK, threshold)
	}
	if err != nil {
		log.Warn().Err(err).Msg("vector index search failed, degrading to empty impacted files")
		s.ImpactedFiles = []state.ImpactedFile{}
		return nil
	}

	files := make([]state.ImpactedFile, 0, len(matches))
	for _, m := range matches {
		files = append(files, state.ImpactedFile{
			FilePath:       m.FilePath,
			RelevanceScore: m.RelevanceScore,
			Snippet:        m.Snippet,
		})
	}
	s.ImpactedFiles = files
	return nil
}

func generateSearchQuery(m *state.RegulatoryModel) string {
	var parts []string

	if m.Title != "" {
		parts = append(parts, m.Title)
	}
	if m.Description != "" {
		parts = append(parts, m.Description)
	}

	reqs := m.Requirements
	if len(reqs) > 5 {
		reqs = reqs[:5]
	}
	parts = append(parts, reqs...)

	if len(m.AffectedSystems) > 0 {
		parts = append(parts, "Systems: "+strings.Join(m.AffectedSystems, " "))
	}

	return strings.Join(parts, " ")
}
