package runtime_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/fixpath/internal/runtime"
	"github.com/aretw0/fixpath/internal/testutils"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_PreOrderAcrossTypes(t *testing.T) {
	e := newEngine(t)

	results := e.SearchNodes("toilet")
	require.Len(t, results, 2)

	assert.Equal(t, testutils.SeatBroken, results[0].NodeID)
	assert.Equal(t, "Toilet seat broken", results[0].Title)
	assert.Equal(t, domain.NodeTypeLeaf, results[0].Type)
	assert.Equal(t, []string{testutils.Bathroom, testutils.SeatBroken}, results[0].Path)

	assert.Equal(t, testutils.Clogged, results[1].NodeID)
	assert.Equal(t, domain.NodeTypeVideoCheck, results[1].Type)
	assert.True(t, results[1].Matched)
}

func TestSearch_CaseInsensitiveAndTrimmed(t *testing.T) {
	e := newEngine(t)

	results := e.SearchNodes("  RADIATOR ")
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.NodeID)
	}
	assert.Equal(t, []string{testutils.Radiator, testutils.RadiatorCold, testutils.RadiatorNoise}, ids)
}

func TestSearch_Language(t *testing.T) {
	e := newEngine(t, runtime.WithLanguage("nl-NL"))
	assert.Equal(t, "nl", e.Language())

	results := e.SearchNodes("kraan")
	require.Len(t, results, 1)
	assert.Equal(t, testutils.TapLeak, results[0].NodeID)
	assert.Equal(t, "Kraan lekt", results[0].Title)

	// An explicit language overrides the default.
	assert.Empty(t, e.Search("kraan", "en"))
}

func TestSearch_BlankQuery(t *testing.T) {
	e := newEngine(t)

	for _, q := range []string{"", "   ", "\t"} {
		results := e.SearchNodes(q)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	}
	assert.Empty(t, e.SearchNodes("xylophone"))
}

func TestSearch_RootMatchHasEmptyPath(t *testing.T) {
	e := newEngine(t)

	results := e.SearchNodes("what needs")
	require.Len(t, results, 1)
	assert.Equal(t, "root", results[0].NodeID)
	assert.Empty(t, results[0].Path)
}

func TestSearch_Limit(t *testing.T) {
	children := make([]*domain.Node, 0, 12)
	for i := range 12 {
		children = append(children, &domain.Node{
			ID:          fmt.Sprintf("leak.%02d", i),
			Type:        domain.NodeTypeLeaf,
			Title:       domain.Text(fmt.Sprintf("Leak %d", i)),
			OutcomeSpec: domain.OutcomeSpec{LeafType: domain.LeafStartTicket},
		})
	}
	tree, err := domain.NewTree("leaks", "1", &domain.Node{
		ID: "root", Type: domain.NodeTypeBranch, Title: domain.Text("Start"), Children: children,
	})
	require.NoError(t, err)

	e := runtime.NewEngine(tree)
	results := e.SearchNodes("leak")
	require.Len(t, results, runtime.DefaultSearchLimit)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("leak.%02d", i), r.NodeID)
	}

	short := runtime.NewEngine(tree, runtime.WithSearchLimit(3))
	assert.Len(t, short.SearchNodes("leak"), 3)
}

func TestSearch_SkipsUntitledNodes(t *testing.T) {
	tree, err := domain.NewTree("bare", "1", &domain.Node{
		ID: "root", Type: domain.NodeTypeBranch, Title: domain.Text("Start"),
		Children: []*domain.Node{
			{ID: "a", Type: domain.NodeTypeLeaf, OutcomeSpec: domain.OutcomeSpec{LeafType: domain.LeafStartTicket}},
			{ID: "b", Type: domain.NodeTypeLeaf, Title: domain.Text("Untitled shed"), OutcomeSpec: domain.OutcomeSpec{LeafType: domain.LeafStartTicket}},
		},
	})
	require.NoError(t, err)

	results := runtime.NewEngine(tree).SearchNodes("untit")
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].NodeID)
}

func TestSearch_PathsAreIndependent(t *testing.T) {
	e := newEngine(t)

	first := e.SearchNodes("toilet")
	first[0].Path[0] = "mutated"

	second := e.SearchNodes("toilet")
	assert.Equal(t, testutils.Bathroom, second[0].Path[0])
}
