package observability_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/fixpath/internal/logging"
	"github.com/aretw0/fixpath/internal/runtime"
	"github.com/aretw0/fixpath/internal/testutils"
	"github.com/aretw0/fixpath/pkg/adapters/memory"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/observability"
	"github.com/aretw0/fixpath/pkg/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	engine := runtime.NewEngine(testutils.SampleTree(t))
	ctx := context.Background()

	w := wizard.New(engine, "s1",
		wizard.WithHooks(m.Hooks()),
		wizard.WithTicketDrafter(memory.NewTicketStore()),
		wizard.WithSynchronousDrafts(),
	)

	ok, err := w.Select(ctx, testutils.Bathroom)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = w.Select(ctx, testutils.TapLeak)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = w.Select(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	out := scrape(t, m)
	assert.Contains(t, out, `fixpath_node_visits_total{node_type="branch"} 1`)
	assert.Contains(t, out, `fixpath_node_visits_total{node_type="leaf"} 1`)
	assert.Contains(t, out, `fixpath_transitions_rejected_total{op="select"} 1`)
	assert.Contains(t, out, `fixpath_drafts_total{result="created"} 1`)
	assert.Contains(t, out, "fixpath_draft_duration_seconds_count 1")
}

func TestMetrics_DraftFailure(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()

	hooks.OnDraftResult(context.Background(), &domain.DraftEvent{Err: errors.New("backend down"), Duration: time.Millisecond})
	hooks.OnDraftResult(context.Background(), &domain.DraftEvent{TicketID: "t", Created: false})

	out := scrape(t, m)
	assert.Contains(t, out, `fixpath_drafts_total{result="failed"} 1`)
	assert.Contains(t, out, `fixpath_drafts_total{result="reused"} 1`)
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()
	a.ObserveSearch()

	assert.Contains(t, scrape(t, a), "fixpath_search_queries_total 1")
	assert.Contains(t, scrape(t, b), "fixpath_search_queries_total 0")
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelDebug, logging.FormatText)
	hooks := observability.LogHooks(logger)

	hooks.OnDraftResult(context.Background(), &domain.DraftEvent{
		EventBase: domain.EventBase{SessionID: "s1"},
		Request:   domain.DraftRequest{Tree: domain.TreeRef{NodeID: "heating.boiler"}},
		Err:       errors.New("backend down"),
	})

	out := buf.String()
	assert.Contains(t, out, "draft_failed")
	assert.Contains(t, out, "session_id=s1")
	assert.Contains(t, out, `err="backend down"`)
}
