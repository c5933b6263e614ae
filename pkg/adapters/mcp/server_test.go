package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/fixpath/internal/runtime"
	"github.com/aretw0/fixpath/internal/testutils"
	"github.com/aretw0/fixpath/pkg/adapters/memory"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/session"
	"github.com/aretw0/fixpath/pkg/wizard"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *session.Manager, *memory.TicketStore) {
	t.Helper()
	tickets := memory.NewTicketStore()
	manager := session.NewManager(memory.NewStore(), runtime.NewEngine(testutils.SampleTree(t)),
		session.WithWizardOptions(wizard.WithTicketDrafter(tickets)),
	)
	t.Cleanup(manager.Wait)
	return NewServer(manager, WithTickets(tickets), WithVersion("test")), manager, tickets
}

func TestServer_WalkToVideo(t *testing.T) {
	s, _, _ := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	start, err := s.handleStart(ctx, req, startArgs{SessionID: "mcp-1", Language: domain.LangNL})
	require.NoError(t, err)
	assert.Equal(t, "mcp-1", start.SessionID)
	assert.Equal(t, "Wat moet er gerepareerd worden?", start.Node.Title)

	res, err := s.handleSelect(ctx, req, selectArgs{SessionID: "mcp-1", NodeID: testutils.Bathroom})
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	res, err = s.handleSelect(ctx, req, selectArgs{SessionID: "mcp-1", NodeID: testutils.Clogged})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseVideoCheck, res.Phase)

	res, err = s.handleVideo(ctx, req, videoArgs{SessionID: "mcp-1", Outcome: "no"})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseStartTicket, res.Phase)
	assert.Equal(t, []string{"describe", "contact", "photos"}, res.Node.Flow)

	crumbs, err := s.handleBreadcrumbs(ctx, req, sessionArgs{SessionID: "mcp-1"})
	require.NoError(t, err)
	require.Len(t, crumbs.Breadcrumbs, 4)
	assert.Equal(t, "Badkamer", crumbs.Breadcrumbs[1].Label)

	res, err = s.handleBack(ctx, req, sessionArgs{SessionID: "mcp-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseVideoCheck, res.Phase)
}

func TestServer_RefusedTransitionIsNotAnError(t *testing.T) {
	s, _, _ := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, startArgs{SessionID: "mcp-2"})
	require.NoError(t, err)

	res, err := s.handleVideo(ctx, mcp.CallToolRequest{}, videoArgs{SessionID: "mcp-2", Outcome: "yes"})
	require.NoError(t, err)
	assert.False(t, res.Accepted)

	res, err = s.handleSelect(ctx, mcp.CallToolRequest{}, selectArgs{SessionID: "mcp-2", NodeID: "nope"})
	require.NoError(t, err)
	assert.False(t, res.Accepted)
}

func TestServer_SearchAndNavigate(t *testing.T) {
	s, _, _ := newTestServer(t)
	ctx := context.Background()

	found, err := s.handleSearch(ctx, mcp.CallToolRequest{}, searchArgs{Query: "radiator"})
	require.NoError(t, err)
	require.NotEmpty(t, found.Results)

	_, err = s.handleStart(ctx, mcp.CallToolRequest{}, startArgs{SessionID: "mcp-3"})
	require.NoError(t, err)

	var target domain.SearchResult
	for _, r := range found.Results {
		if r.NodeID == testutils.RadiatorNoise {
			target = r
		}
	}
	require.NotEmpty(t, target.Path)

	res, err := s.handleNavigate(ctx, mcp.CallToolRequest{}, navigateArgs{SessionID: "mcp-3", Path: target.Path})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, domain.PhaseNoTicket, res.Phase)
}

func TestServer_Submit(t *testing.T) {
	s, manager, tickets := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, startArgs{SessionID: "mcp-4"})
	require.NoError(t, err)

	_, err = s.handleSubmit(ctx, mcp.CallToolRequest{}, submitArgs{SessionID: "mcp-4", Description: "x"})
	assert.ErrorIs(t, err, domain.ErrNoTicket)

	_, err = s.handleNavigate(ctx, mcp.CallToolRequest{}, navigateArgs{SessionID: "mcp-4", Path: []string{testutils.Heating, testutils.Boiler}})
	require.NoError(t, err)
	manager.Wait()

	out, err := s.handleSubmit(ctx, mcp.CallToolRequest{}, submitArgs{
		SessionID:   "mcp-4",
		Description: "Boiler shows F28 and the water is cold.",
		Email:       "tenant@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketSubmitted, out.Status)

	got, err := tickets.Get(ctx, out.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "tenant@example.com", got.Contact.Email)
}

func TestServer_UnknownSession(t *testing.T) {
	s, _, _ := newTestServer(t)

	_, err := s.handleGet(context.Background(), mcp.CallToolRequest{}, sessionArgs{SessionID: "missing"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestServer_ToolCall(t *testing.T) {
	s, _, _ := newTestServer(t)

	raw := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"start_session","arguments":{"session_id":"rpc-1"}}}`)
	msg := s.MCPServer().HandleMessage(context.Background(), raw)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	var env struct {
		Error  json.RawMessage `json:"error"`
		Result struct {
			IsError           bool       `json:"isError"`
			StructuredContent ViewResult `json:"structuredContent"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	require.Empty(t, env.Error, string(data))
	assert.False(t, env.Result.IsError)

	view := env.Result.StructuredContent
	assert.Equal(t, "rpc-1", view.SessionID)
	assert.Equal(t, domain.PhaseBranch, view.Phase)
}
