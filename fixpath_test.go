package fixpath_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/fixpath"
	"github.com/aretw0/fixpath/internal/config"
	"github.com/aretw0/fixpath/internal/testutils"
	"github.com/aretw0/fixpath/pkg/adapters/memory"
	"github.com/aretw0/fixpath/pkg/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treeYAML = `tree_id: portal
version: 4
root_node_id: root
nodes:
  root:
    type: branch
    title: {en: What needs fixing?, nl: Wat moet er gerepareerd worden?}
    children: [heating]
  heating:
    type: branch
    title: Heating
    children: [radiator_cold]
  radiator_cold:
    type: leaf
    title: Radiator stays cold
    leaf_type: start_ticket
    leaf_reason: standard_wizard
    required_fields: [description]
`

func walk(t *testing.T, p *fixpath.Portal, sessionID string, ids ...string) string {
	t.Helper()
	ctx := context.Background()
	var ticketID string
	_, err := p.Manager.Do(ctx, sessionID, func(ctx context.Context, w *wizard.Wizard) error {
		for _, id := range ids {
			ok, err := w.Select(ctx, id)
			if err != nil {
				return err
			}
			require.True(t, ok, "select %s", id)
		}
		return nil
	})
	require.NoError(t, err)
	p.Manager.Wait()

	_, err = p.Manager.Do(ctx, sessionID, func(_ context.Context, w *wizard.Wizard) error {
		ticketID = w.TicketID()
		return nil
	})
	require.NoError(t, err)
	return ticketID
}

func TestOpen_FileTreeAndStore(t *testing.T) {
	dir := t.TempDir()
	treePath := filepath.Join(dir, "tree.yaml")
	require.NoError(t, os.WriteFile(treePath, []byte(treeYAML), 0o644))

	cfg := config.Default()
	cfg.Tree = treePath
	cfg.Sessions.Store = config.StoreFile
	cfg.Sessions.Dir = filepath.Join(dir, "sessions")

	ctx := context.Background()
	p, err := fixpath.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, p.Close()) })

	assert.Equal(t, "portal", p.Tree.ID)
	assert.Equal(t, "4", p.Tree.Version)

	_, err = p.Manager.Start(ctx, "s1")
	require.NoError(t, err)
	ticketID := walk(t, p, "s1", "heating", "radiator_cold")
	assert.NotEmpty(t, ticketID)

	tickets, ok := p.Tickets.(*memory.TicketStore)
	require.True(t, ok)
	assert.Equal(t, 1, tickets.Len())

	ids, err := p.Manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestOpen_RedisEncryptedWithDraftCache(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Sessions.Store = config.StoreRedis
	cfg.Sessions.EncryptionKey = strings.Repeat("ab", 32)
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.DraftCache = true

	ctx := context.Background()
	p, err := fixpath.Open(ctx, cfg, fixpath.WithTree(testutils.SampleTree(t)))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, p.Close()) })

	_, err = p.Manager.Start(ctx, "s1")
	require.NoError(t, err)
	ticketID := walk(t, p, "s1", testutils.Bathroom, testutils.TapLeak)
	require.NotEmpty(t, ticketID)

	raw, err := mr.Get("fixpath:session:s1")
	require.NoError(t, err)
	assert.Contains(t, raw, "sealed")
	assert.NotContains(t, raw, testutils.TapLeak, "path must not be stored in clear text")

	snap, err := p.Manager.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{testutils.Bathroom, testutils.TapLeak}, snap.Path)

	assert.True(t, mr.Exists("fixpath:draft-ticket:"+ticketID))
}

func TestOpen_SQLiteBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Kind = config.BackendSQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "tickets.db")

	ctx := context.Background()
	p, err := fixpath.Open(ctx, cfg, fixpath.WithTree(testutils.SampleTree(t)))
	require.NoError(t, err)

	_, err = p.Manager.Start(ctx, "s1")
	require.NoError(t, err)
	ticketID := walk(t, p, "s1", testutils.Heating, testutils.Boiler)
	require.NotEmpty(t, ticketID)
	require.NoError(t, p.Close())

	_, err = os.Stat(cfg.SQLite.Path)
	assert.NoError(t, err)
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Sessions.Store = "etcd"
	_, err := fixpath.Open(ctx, cfg)
	assert.ErrorContains(t, err, "unknown session store")

	cfg = config.Default()
	cfg.Tree = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = fixpath.Open(ctx, cfg)
	assert.Error(t, err)
}

func TestPortal_Servers(t *testing.T) {
	p, err := fixpath.Open(context.Background(), config.Default(), fixpath.WithTree(testutils.SampleTree(t)))
	require.NoError(t, err)
	defer p.Close()

	srv, err := p.HTTPServer()
	require.NoError(t, err)
	assert.Same(t, p.Streams, srv.Streams())
	assert.NotNil(t, p.MCPServer().MCPServer())
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, fixpath.Version)
	assert.NotContains(t, fixpath.Version, "\n")
}
