package runtime_test

import (
	"errors"
	"testing"

	"github.com/aretw0/fixpath/internal/runtime"
	"github.com/aretw0/fixpath/internal/testutils"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	return runtime.NewEngine(testutils.SampleTree(t), opts...)
}

func TestEngine_CreateInitialState(t *testing.T) {
	e := newEngine(t)
	s := e.CreateInitialState()

	assert.Equal(t, "root", s.CurrentNode.ID)
	assert.NotNil(t, s.Path)
	assert.Empty(t, s.Path)
	assert.NotNil(t, s.History)
	assert.Empty(t, s.History)
	assert.Empty(t, s.SelectedChoice)
}

func TestEngine_NextNode(t *testing.T) {
	e := newEngine(t)

	bathroom := e.NextNode([]string{}, testutils.Bathroom)
	require.NotNil(t, bathroom)
	assert.Equal(t, domain.NodeTypeBranch, bathroom.Type)

	tap := e.NextNode([]string{testutils.Bathroom}, testutils.TapLeak)
	require.NotNil(t, tap)
	assert.Equal(t, domain.LeafStartTicket, tap.LeafType)

	assert.Nil(t, e.NextNode([]string{testutils.Bathroom}, "nonexistent"))
	// Grandchildren are not reachable in one step.
	assert.Nil(t, e.NextNode([]string{}, testutils.TapLeak))
	// A leaf has no children to choose from.
	assert.Nil(t, e.NextNode([]string{testutils.Bathroom, testutils.TapLeak}, "anything"))
	// Neither does a video node.
	assert.Nil(t, e.NextNode([]string{testutils.Bathroom, testutils.Clogged}, "anything"))
	// Invalid current path.
	assert.Nil(t, e.NextNode([]string{"nope"}, testutils.TapLeak))
}

func TestEngine_GetNodeByPath(t *testing.T) {
	e := newEngine(t)

	assert.Equal(t, "root", e.GetNodeByPath(nil).ID)
	assert.Equal(t, "root", e.GetNodeByPath([]string{}).ID)

	n := e.GetNodeByPath([]string{testutils.Heating, testutils.Radiator, testutils.RadiatorCold})
	require.NotNil(t, n)
	assert.Equal(t, testutils.RadiatorCold, n.ID)

	assert.Nil(t, e.GetNodeByPath([]string{testutils.Heating, testutils.TapLeak}))
	assert.Nil(t, e.GetNodeByPath([]string{testutils.Bathroom, testutils.TapLeak, "below-a-leaf"}))
}

func TestEngine_GetNodeByPath_PrefixClosed(t *testing.T) {
	e := newEngine(t)

	// Every prefix of a resolvable path resolves.
	e.Tree().Walk(func(n *domain.Node, path []string) bool {
		got := e.GetNodeByPath(path)
		require.NotNil(t, got, "path %v", path)
		assert.Same(t, n, got)
		for i := range path {
			assert.NotNil(t, e.GetNodeByPath(path[:i]), "prefix %v", path[:i])
		}
		return true
	})

	// Once a path fails, every extension fails too.
	bad := []string{testutils.Bathroom, "missing"}
	assert.Nil(t, e.GetNodeByPath(bad))
	assert.Nil(t, e.GetNodeByPath(append(bad, testutils.TapLeak)))
}

func TestEngine_HasLeafChildren(t *testing.T) {
	e := newEngine(t)
	tree := e.Tree()

	bathroom, _ := tree.Lookup(testutils.Bathroom)
	heating, _ := tree.Lookup(testutils.Heating)
	radiator, _ := tree.Lookup(testutils.Radiator)
	kitchen, _ := tree.Lookup(testutils.Kitchen)
	tap, _ := tree.Lookup(testutils.TapLeak)

	assert.True(t, e.HasLeafChildren(bathroom))
	assert.True(t, e.HasLeafChildren(heating), "boiler is a direct leaf child")
	assert.True(t, e.HasLeafChildren(radiator))
	assert.False(t, e.HasLeafChildren(tree.Root), "only grandchildren are leaves")
	assert.False(t, e.HasLeafChildren(kitchen))
	assert.False(t, e.HasLeafChildren(tap))
	assert.False(t, runtime.HasLeafChildren(nil))
}

func TestEngine_HandleVideoOutcome(t *testing.T) {
	e := newEngine(t)
	clogged, _ := e.Tree().Lookup(testutils.Clogged)

	yes, err := e.HandleVideoOutcome(clogged, domain.OutcomeYes)
	require.NoError(t, err)
	assert.Equal(t, domain.LeafEndNoTicket, yes.LeafType)
	assert.Equal(t, "self_resolved", yes.LeafReason)

	no, err := e.HandleVideoOutcome(clogged, domain.OutcomeNo)
	require.NoError(t, err)
	assert.Equal(t, domain.LeafStartTicket, no.LeafType)
	assert.Equal(t, []string{"description"}, no.RequiredFields)
	assert.Equal(t, []string{"describe", "contact", "photos"}, no.Flow)

	// Outcomes are isolated from each other and from the tree.
	no.RequiredFields[0] = "mutated"
	again, err := e.HandleVideoOutcome(clogged, domain.OutcomeNo)
	require.NoError(t, err)
	assert.Equal(t, []string{"description"}, again.RequiredFields)
	assert.Equal(t, []string{"description"}, clogged.Outcomes.No.RequiredFields)
}

func TestEngine_HandleVideoOutcome_Errors(t *testing.T) {
	e := newEngine(t)
	bathroom, _ := e.Tree().Lookup(testutils.Bathroom)
	clogged, _ := e.Tree().Lookup(testutils.Clogged)

	_, err := e.HandleVideoOutcome(bathroom, domain.OutcomeYes)
	assert.ErrorIs(t, err, domain.ErrNotAtVideoCheck)

	_, err = e.HandleVideoOutcome(clogged, domain.VideoOutcome("maybe"))
	assert.ErrorIs(t, err, domain.ErrInvalidOutcome)
}

func TestEngine_HandleVideoOutcome_MissingOutcome(t *testing.T) {
	tree := testutils.BrokenVideoTree(t)
	e := runtime.NewEngine(tree)
	broken, _ := tree.Lookup("broken")

	_, err := e.HandleVideoOutcome(broken, domain.OutcomeYes)
	require.NoError(t, err)

	_, err = e.HandleVideoOutcome(broken, domain.OutcomeNo)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTreeIntegrity)

	var integrity *domain.TreeIntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Equal(t, "broken", integrity.NodeID)
}

func TestEngine_EmptyBranchIsNavigable(t *testing.T) {
	e := newEngine(t)

	kitchen := e.NextNode([]string{}, testutils.Kitchen)
	require.NotNil(t, kitchen)
	assert.Empty(t, kitchen.Children)
	assert.Nil(t, e.NextNode([]string{testutils.Kitchen}, "sink"))
}
