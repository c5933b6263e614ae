package edge_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/fixpath/pkg/adapters/edge"
	"github.com/aretw0/fixpath/pkg/adapters/memory"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) (*edge.Client, *memory.TicketStore) {
	t.Helper()
	store := memory.NewTicketStore()
	srv := httptest.NewServer(edge.NewHandler(store, nil))
	t.Cleanup(srv.Close)

	client, err := edge.New(srv.URL, edge.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return client, store
}

func TestClient_Contract(t *testing.T) {
	client, _ := newBackend(t)
	ports.RunTicketServiceContract(t, client)
}

func TestClient_ValidationFields(t *testing.T) {
	client, _ := newBackend(t)
	ctx := context.Background()

	draft, err := client.CreateDraft(ctx, domain.DraftRequest{
		SessionID: "s1",
		Tree:      domain.TreeRef{ID: "portal", Version: "1", NodeID: "heating.boiler", LeafType: domain.LeafStartTicket},
	})
	require.NoError(t, err)

	err = client.Finalize(ctx, draft.TicketID)
	require.Error(t, err)

	errs := domain.ValidationErrors(err)
	require.NotEmpty(t, errs)
	keys := make([]string, 0, len(errs))
	for _, e := range errs {
		var verr *domain.ValidationError
		require.ErrorAs(t, e, &verr)
		keys = append(keys, verr.Key)
	}
	assert.Contains(t, keys, "description")
	assert.Contains(t, keys, "contact")
}

func TestClient_SendsBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.DraftTicket{TicketID: "t-1", Created: true})
	}))
	defer srv.Close()

	client, err := edge.New(srv.URL+"/", edge.WithToken("secret-token"))
	require.NoError(t, err)

	draft, err := client.CreateDraft(context.Background(), domain.DraftRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "t-1", draft.TicketID)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "/tickets/draft", gotPath)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"not found", http.StatusNotFound, `{"error":"no such ticket"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrTicketNotFound)
		}},
		{"conflict", http.StatusConflict, `{"error":"submitted"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrTicketNotDraft)
		}},
		{"unprocessable without fields", http.StatusUnprocessableEntity, `{"error":"bad"}`, func(t *testing.T, err error) {
			var verr *domain.ValidationError
			assert.ErrorAs(t, err, &verr)
		}},
		{"server error", http.StatusBadGateway, `upstream down`, func(t *testing.T, err error) {
			var serr *edge.StatusError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, http.StatusBadGateway, serr.StatusCode)
			assert.True(t, strings.Contains(serr.Body.Message, "upstream down"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := edge.New(srv.URL)
			require.NoError(t, err)
			tt.check(t, client.Finalize(context.Background(), "t-1"))
		})
	}
}

func TestClient_RequiresBaseURL(t *testing.T) {
	_, err := edge.New("")
	assert.Error(t, err)
}

func TestHandler_DraftStatusCodes(t *testing.T) {
	srv := httptest.NewServer(edge.NewHandler(memory.NewTicketStore(), nil))
	defer srv.Close()

	body := `{"sessionId":"s1","tree":{"id":"portal","version":"1","node_id":"kitchen","leaf_type":"start_ticket","leaf_reason":"standard_wizard"}}`
	post := func() *http.Response {
		resp, err := srv.Client().Post(srv.URL+"/tickets/draft", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusCreated, post().StatusCode)
	assert.Equal(t, http.StatusOK, post().StatusCode)

	resp, err := srv.Client().Post(srv.URL+"/tickets/draft", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
