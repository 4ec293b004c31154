package orchestrator

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_RejectsEmptyText(t *testing.T) {
	t.Parallel()

	o := &Orchestrator{Log: zerolog.Nop()}

	_, err := o.Analyze(context.Background(), "   \n\t", "/repo")
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestAnalyze_RejectsEmptyTextBeforeTouchingExecutor(t *testing.T) {
	t.Parallel()

	// Executor and Audit are both left nil: if empty-text validation ran
	// after constructing the pipeline, this would panic instead of
	// returning ErrEmptyText.
	o := &Orchestrator{}

	_, err := o.Analyze(context.Background(), "", "/repo")
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestGetAudit_UnavailableWithNoStore(t *testing.T) {
	t.Parallel()

	o := &Orchestrator{Log: zerolog.Nop()}

	_, err := o.GetAudit(context.Background(), "anything")
	require.ErrorIs(t, err, ErrAuditUnavailable)
}

func TestListAudit_UnavailableWithNoStore(t *testing.T) {
	t.Parallel()

	o := &Orchestrator{Log: zerolog.Nop()}

	_, err := o.ListAudit(context.Background(), 10)
	require.ErrorIs(t, err, ErrAuditUnavailable)
}
