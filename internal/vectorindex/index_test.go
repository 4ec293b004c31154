package vectorindex

import "testing"

func TestRankCandidates_FiltersByThresholdAndOrdersDescending(t *testing.T) {
	t.Parallel()

	query := []float64{1, 0, 0}
	candidates := []candidateRow{
		{filePath: "a.go", content: "a", vec: []float64{1, 0, 0}},    // score 1.0
		{filePath: "b.go", content: "b", vec: []float64{0, 1, 0}},    // score 0.0
		{filePath: "c.go", content: "c", vec: []float64{0.9, 0.1, 0}}, // score ~0.994
	}

	matches := rankCandidates(candidates, query, 0.5)
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}
	if matches[0].FilePath != "a.go" || matches[1].FilePath != "c.go" {
		t.Fatalf("unexpected order: %+v", matches)
	}
	if matches[0].RelevanceScore < matches[1].RelevanceScore {
		t.Fatalf("expected descending order by relevance score")
	}
}

func TestRankCandidates_TiesBreakByFilePath(t *testing.T) {
	t.Parallel()

	query := []float64{1, 0}
	candidates := []candidateRow{
		{filePath: "z.go", content: "z", vec: []float64{1, 0}},
		{filePath: "a.go", content: "a", vec: []float64{1, 0}},
	}

	matches := rankCandidates(candidates, query, 0.0)
	if matches[0].FilePath != "a.go" {
		t.Fatalf("expected deterministic tie-break by file path, got %+v", matches)
	}
}

func TestSimhash_SimilarVectorsShareBucketMoreOftenThanOpposite(t *testing.T) {
	t.Parallel()

	a := []float64{1, 1, 1, -1}
	b := []float64{0.9, 0.8, 1.1, -0.9}
	opposite := []float64{-1, -1, -1, 1}

	if simhash(a) != simhash(b) {
		t.Fatalf("expected similar vectors to share a simhash bucket")
	}
	if simhash(a) == simhash(opposite) {
		t.Fatalf("expected opposite vectors to land in different simhash buckets")
	}
}

func TestMatch_SnippetTruncatedTo200Chars(t *testing.T) {
	t.Parallel()

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	candidates := []candidateRow{{filePath: "f.go", content: string(long), vec: []float64{1}}}

	matches := rankCandidates(candidates, []float64{1}, 0)
	if len(matches[0].Snippet) != 200 {
		t.Fatalf("len(snippet) = %d, want 200", len(matches[0].Snippet))
	}
}
