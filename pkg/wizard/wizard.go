package wizard

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/fixpath/internal/logging"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/ports"
)

// StartLabel is the label of the first breadcrumb.
const StartLabel = "Start"

// Wizard is the stateful wrapper around a TreeEngine for one session.
type Wizard struct {
	engine    ports.TreeEngine
	sessionID string
	profileID string
	lang      string

	state  domain.WizardState
	halted error

	drafter    ports.TicketDrafter
	syncDrafts bool
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	now        func() time.Time

	// Draft bookkeeping is written by dispatch goroutines.
	mu         sync.Mutex
	tickets    map[string]string
	notices    []domain.Notice
	nextNotice int
	inflight   sync.WaitGroup
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithTicketDrafter sets the collaborator invoked on start_ticket leaves.
// Without one, reaching such a leaf has no side effect.
func WithTicketDrafter(d ports.TicketDrafter) Option {
	return func(w *Wizard) {
		w.drafter = d
	}
}

// WithProfile attaches an authenticated profile to draft requests.
func WithProfile(profileID string) Option {
	return func(w *Wizard) {
		w.profileID = profileID
	}
}

// WithLanguage sets the display language for breadcrumbs, choices and search.
func WithLanguage(lang string) Option {
	return func(w *Wizard) {
		if lang != "" {
			w.lang = domain.NormalizeLanguage(lang)
		}
	}
}

// WithHooks registers lifecycle hooks. Multiple calls are merged.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Wizard) {
		w.hooks = w.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithSynchronousDrafts makes draft dispatch run inline with the transition.
func WithSynchronousDrafts() Option {
	return func(w *Wizard) {
		w.syncDrafts = true
	}
}

// New creates a wizard positioned on the root of the engine's tree.
// sessionID is an opaque caller-supplied identity passed through unchanged
// to the ticket collaborator.
func New(engine ports.TreeEngine, sessionID string, opts ...Option) *Wizard {
	w := &Wizard{
		engine:     engine,
		sessionID:  sessionID,
		lang:       domain.LangEN,
		logger:     logging.NewNop(),
		now:        time.Now,
		tickets:    make(map[string]string),
		nextNotice: 1,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("session_id", sessionID)
	w.state = engine.CreateInitialState()
	return w
}

// Restore rebuilds a wizard from a snapshot without firing any side effect.
// The snapshot must have been taken against the engine's tree id and version.
func Restore(engine ports.TreeEngine, snap *domain.Snapshot, opts ...Option) (*Wizard, error) {
	tree := engine.Tree()
	if snap.TreeID != tree.ID || snap.TreeVersion != tree.Version {
		return nil, fmt.Errorf("%w: session %s has %s@%s, engine has %s@%s",
			domain.ErrTreeVersionMismatch, snap.SessionID, snap.TreeID, snap.TreeVersion, tree.ID, tree.Version)
	}

	base := []Option{WithProfile(snap.ProfileID), WithLanguage(snap.Language)}
	w := New(engine, snap.SessionID, append(base, opts...)...)

	current, err := w.resolve(snap.Path)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: path %v does not resolve", domain.ErrTreeVersionMismatch, snap.Path)
	}

	w.state = domain.WizardState{
		CurrentNode:    current,
		Path:           slices.Clone(snap.Path),
		History:        make([][]string, 0, len(snap.History)),
		SelectedChoice: snap.SelectedChoice,
	}
	if w.state.Path == nil {
		w.state.Path = []string{}
	}
	for _, p := range snap.History {
		w.state.History = append(w.state.History, slices.Clone(p))
	}

	if snap.Halted != "" {
		w.halted = fmt.Errorf("%w: %s", domain.ErrTreeIntegrity, snap.Halted)
	}
	if len(snap.Tickets) > 0 {
		w.tickets = maps.Clone(snap.Tickets)
	} else if snap.TicketID != "" && isTicketLeaf(current) {
		w.tickets[current.ID] = snap.TicketID
	}
	w.notices = slices.Clone(snap.Notices)
	for _, n := range w.notices {
		if n.ID >= w.nextNotice {
			w.nextNotice = n.ID + 1
		}
	}
	return w, nil
}

// SessionID returns the session identity.
func (w *Wizard) SessionID() string {
	return w.sessionID
}

// Language returns the display language.
func (w *Wizard) Language() string {
	return w.lang
}

// Tree returns the tree being walked.
func (w *Wizard) Tree() *domain.DecisionTree {
	return w.engine.Tree()
}

// State returns a copy of the current state.
func (w *Wizard) State() domain.WizardState {
	return w.state.Clone()
}

// Current returns the node the user is looking at.
func (w *Wizard) Current() *domain.Node {
	return w.state.CurrentNode
}

// Path returns a copy of the root-exclusive path to the current node.
func (w *Wizard) Path() []string {
	return slices.Clone(w.state.Path)
}

// Phase derives the state machine phase from the current node.
func (w *Wizard) Phase() (domain.Phase, error) {
	return w.state.CurrentNode.Phase()
}

// Err returns the tree integrity error that halted the wizard, if any.
func (w *Wizard) Err() error {
	return w.halted
}

// Snapshot captures the serializable state of the session.
func (w *Wizard) Snapshot() *domain.Snapshot {
	tree := w.engine.Tree()
	s := w.state.Clone()
	halted := ""
	if w.halted != nil {
		halted = w.halted.Error()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	var tickets map[string]string
	if len(w.tickets) > 0 {
		tickets = maps.Clone(w.tickets)
	}
	return &domain.Snapshot{
		SessionID:      w.sessionID,
		ProfileID:      w.profileID,
		TreeID:         tree.ID,
		TreeVersion:    tree.Version,
		Language:       w.lang,
		Path:           s.Path,
		History:        s.History,
		SelectedChoice: s.SelectedChoice,
		TicketID:       w.ticketFor(s.CurrentNode),
		Tickets:        tickets,
		Notices:        slices.Clone(w.notices),
		Halted:         halted,
		UpdatedAt:      w.now().UTC(),
	}
}
