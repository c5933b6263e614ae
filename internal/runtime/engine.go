package runtime

import (
	"log/slog"

	"github.com/aretw0/fixpath/internal/logging"
	"github.com/aretw0/fixpath/pkg/domain"
)

// DefaultSearchLimit bounds the number of search results rendered by a UI.
const DefaultSearchLimit = 8

// Engine answers structural questions about one immutable DecisionTree.
// It holds no session state; every method is a pure function of the tree
// and its arguments, so a single Engine is shared by all sessions.
type Engine struct {
	tree        *domain.DecisionTree
	lang        string
	searchLimit int
	logger      *slog.Logger
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLanguage sets the default display language used by SearchNodes.
func WithLanguage(lang string) EngineOption {
	return func(e *Engine) {
		e.lang = domain.NormalizeLanguage(lang)
	}
}

// WithSearchLimit overrides the maximum number of search results.
func WithSearchLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.searchLimit = n
		}
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over tree. The tree must come from domain.NewTree.
func NewEngine(tree *domain.DecisionTree, opts ...EngineOption) *Engine {
	e := &Engine{
		tree:        tree,
		lang:        domain.LangEN,
		searchLimit: DefaultSearchLimit,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("tree_id", tree.ID, "tree_version", tree.Version)
	return e
}

// Tree returns the tree the engine was built with.
func (e *Engine) Tree() *domain.DecisionTree {
	return e.tree
}

// Language returns the default display language.
func (e *Engine) Language() string {
	return e.lang
}

// CreateInitialState positions a fresh walk on the root with empty path and history.
func (e *Engine) CreateInitialState() domain.WizardState {
	return domain.WizardState{
		CurrentNode: e.tree.Root,
		Path:        []string{},
		History:     [][]string{},
	}
}
