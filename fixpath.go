package fixpath

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/fixpath/internal/config"
	"github.com/aretw0/fixpath/internal/logging"
	"github.com/aretw0/fixpath/internal/runtime"
	"github.com/aretw0/fixpath/pkg/adapters/edge"
	"github.com/aretw0/fixpath/pkg/adapters/file"
	fixhttp "github.com/aretw0/fixpath/pkg/adapters/http"
	"github.com/aretw0/fixpath/pkg/adapters/mcp"
	"github.com/aretw0/fixpath/pkg/adapters/memory"
	"github.com/aretw0/fixpath/pkg/adapters/redis"
	"github.com/aretw0/fixpath/pkg/adapters/sqlite"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/media"
	"github.com/aretw0/fixpath/pkg/observability"
	"github.com/aretw0/fixpath/pkg/persistence/middleware"
	"github.com/aretw0/fixpath/pkg/ports"
	"github.com/aretw0/fixpath/pkg/session"
	"github.com/aretw0/fixpath/pkg/wizard"
	backend "github.com/redis/go-redis/v9"
)

// Portal is a fully wired maintenance portal: one tree, its sessions and
// the ticket backend they draft into.
type Portal struct {
	Config  config.Config
	Tree    *domain.DecisionTree
	Engine  *runtime.Engine
	Manager *session.Manager
	Store   ports.WizardStore
	Tickets ports.TicketService
	Metrics *observability.Metrics
	Streams *fixhttp.StreamManager
	Logger  *slog.Logger

	closers []func() error
}

type options struct {
	logger  *slog.Logger
	loader  ports.TreeLoader
	store   ports.WizardStore
	tickets ports.TicketService
	metrics *observability.Metrics
	wizard  []wizard.Option
}

// Option customizes Open.
type Option func(*options)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLoader reads the tree from loader instead of the file named by Config.Tree.
func WithLoader(loader ports.TreeLoader) Option {
	return func(o *options) {
		o.loader = loader
	}
}

// WithTree serves an already built tree.
func WithTree(tree *domain.DecisionTree) Option {
	return WithLoader(memory.NewLoader(tree))
}

// WithWizardStore replaces the configured session store. Encryption still applies.
func WithWizardStore(store ports.WizardStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithTicketService replaces the configured ticket backend.
func WithTicketService(svc ports.TicketService) Option {
	return func(o *options) {
		o.tickets = svc
	}
}

// WithMetrics registers the wizard collectors on m instead of a fresh registry.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithWizardOptions adds options applied to every wizard of the portal.
func WithWizardOptions(opts ...wizard.Option) Option {
	return func(o *options) {
		o.wizard = append(o.wizard, opts...)
	}
}

// Open builds a portal from cfg.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Portal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}

	p := &Portal{Config: cfg, Logger: o.logger}
	if err := p.build(ctx, o); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Portal) build(ctx context.Context, o *options) error {
	cfg := p.Config

	loader := o.loader
	if loader == nil {
		loader = file.NewLoader(cfg.Tree, file.WithLogger(p.Logger))
	}
	tree, err := loader.Load(ctx)
	if err != nil {
		return err
	}
	if err := tree.Validate(); err != nil {
		p.Logger.Warn("tree failed publish checks", "tree_id", tree.ID, "err", err)
	}
	p.Tree = tree
	p.Engine = runtime.NewEngine(tree,
		runtime.WithLanguage(cfg.Language),
		runtime.WithLogger(p.Logger),
	)

	var client *backend.Client
	if cfg.Sessions.Store == config.StoreRedis || cfg.Redis.DraftCache {
		client = backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		p.closers = append(p.closers, client.Close)
	}

	store, locker, err := p.openStore(o, client)
	if err != nil {
		return err
	}
	p.Store = store

	tickets, err := p.openTickets(o, client)
	if err != nil {
		return err
	}
	p.Tickets = tickets

	p.Metrics = o.metrics
	if p.Metrics == nil {
		p.Metrics = observability.NewMetrics()
	}
	p.Streams = fixhttp.NewStreamManager(p.Logger)

	wizardOpts := []wizard.Option{
		wizard.WithTicketDrafter(tickets),
		wizard.WithHooks(p.Metrics.Hooks().Merge(observability.LogHooks(p.Logger))),
	}
	managerOpts := []session.Option{
		session.WithLogger(p.Logger),
		session.WithWizardOptions(append(wizardOpts, o.wizard...)...),
		session.WithObserver(p.Streams.Observe),
	}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker))
	}
	p.Manager = session.NewManager(store, p.Engine, managerOpts...)
	return nil
}

func (p *Portal) openStore(o *options, client *backend.Client) (ports.WizardStore, ports.DistributedLocker, error) {
	cfg := p.Config
	var (
		store  ports.WizardStore
		locker ports.DistributedLocker
	)
	switch {
	case o.store != nil:
		store = o.store
	case cfg.Sessions.Store == config.StoreFile:
		store = file.New(cfg.Sessions.Dir)
	case cfg.Sessions.Store == config.StoreRedis:
		store = redis.NewFromClient(client,
			redis.WithPrefix(cfg.Redis.Prefix+"session:"),
			redis.WithTTL(time.Duration(cfg.Redis.TTL)),
		)
		locker = redis.NewLocker(client, cfg.Redis.Prefix)
	default:
		store = memory.NewStore()
	}

	active, fallbacks, err := cfg.EncryptionKeys()
	if err != nil {
		return nil, nil, err
	}
	if active != nil {
		seal, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallbacks,
		})
		if err != nil {
			return nil, nil, err
		}
		store = middleware.Chain(store, seal)
	}
	return store, locker, nil
}

func (p *Portal) openTickets(o *options, client *backend.Client) (ports.TicketService, error) {
	cfg := p.Config
	signer := media.NewSigner([]byte(cfg.Media.Secret), cfg.Media.BaseURL,
		media.WithPolicy(cfg.MediaPolicy()),
		media.WithTTL(time.Duration(cfg.Media.TTL)),
	)

	var svc ports.TicketService
	switch {
	case o.tickets != nil:
		svc = o.tickets
	case cfg.Backend.Kind == config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path,
			sqlite.WithSigner(signer),
			sqlite.WithMinDescription(cfg.Ticket.MinDescription),
		)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, db.Close)
		svc = db
	case cfg.Backend.Kind == config.BackendEdge:
		c, err := edge.New(cfg.Backend.URL,
			edge.WithToken(cfg.Backend.Token),
			edge.WithLogger(p.Logger),
		)
		if err != nil {
			return nil, err
		}
		svc = c
	default:
		svc = memory.NewTicketStore(
			memory.WithSigner(signer),
			memory.WithMinDescription(cfg.Ticket.MinDescription),
		)
	}

	if cfg.Redis.DraftCache && client != nil {
		svc = redis.NewDraftCache(client, svc, cfg.Redis.Prefix, time.Duration(cfg.Redis.TTL))
	}
	return svc, nil
}

// HTTPServer returns the HTTP adapter for the portal.
func (p *Portal) HTTPServer() (*fixhttp.Server, error) {
	return fixhttp.NewServer(p.Manager,
		fixhttp.WithTickets(p.Tickets),
		fixhttp.WithMetrics(p.Metrics),
		fixhttp.WithStreams(p.Streams),
		fixhttp.WithLogger(p.Logger),
		fixhttp.WithVersion(Version),
		fixhttp.WithMinDescription(p.Config.Ticket.MinDescription),
	)
}

// MCPServer returns the MCP adapter for the portal.
func (p *Portal) MCPServer() *mcp.Server {
	return mcp.NewServer(p.Manager,
		mcp.WithTickets(p.Tickets),
		mcp.WithLogger(p.Logger),
		mcp.WithVersion(Version),
	)
}

// Close waits for pending drafts and releases backends.
func (p *Portal) Close() error {
	if p.Manager != nil {
		p.Manager.Wait()
	}
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}
	p.closers = nil
	return errors.Join(errs...)
}
