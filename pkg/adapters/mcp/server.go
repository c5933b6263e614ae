// Package mcp exposes the wizard as Model Context Protocol tools, so an
// assistant can walk a tenant through the tree on their behalf.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/fixpath/internal/logging"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/ports"
	"github.com/aretw0/fixpath/pkg/session"
	"github.com/aretw0/fixpath/pkg/tickets"
	"github.com/aretw0/fixpath/pkg/wizard"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TreeURI is the resource holding the active tree.
const TreeURI = "fixpath://tree"

// ViewResult is the structured output of every session tool.
type ViewResult struct {
	wizard.View
	Accepted bool `json:"accepted" jsonschema_description:"False when the wizard refused the transition"`
}

// SearchResult lists matching nodes in tree pre-order.
type SearchResult struct {
	Results []domain.SearchResult `json:"results" jsonschema_description:"Matching nodes; each path can be passed to navigate_path"`
}

// BreadcrumbsResult is the trail from the root to the current node.
type BreadcrumbsResult struct {
	Breadcrumbs []wizard.Breadcrumb `json:"breadcrumbs"`
}

// SubmitResult confirms a submitted ticket.
type SubmitResult struct {
	TicketID string              `json:"ticket_id"`
	Status   domain.TicketStatus `json:"status"`
}

type startArgs struct {
	SessionID string `json:"session_id"`
	ProfileID string `json:"profile_id"`
	Language  string `json:"language"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

type selectArgs struct {
	SessionID string `json:"session_id"`
	NodeID    string `json:"node_id"`
}

type navigateArgs struct {
	SessionID string   `json:"session_id"`
	Path      []string `json:"path"`
}

type videoArgs struct {
	SessionID string `json:"session_id"`
	Outcome   string `json:"outcome"`
}

type searchArgs struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

type submitArgs struct {
	SessionID   string `json:"session_id"`
	Description string `json:"description"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// Server wraps a session manager and exposes it as an MCP Server.
type Server struct {
	manager   *session.Manager
	tickets   ports.TicketService
	logger    *slog.Logger
	version   string
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithTickets enables the submit_ticket tool.
func WithTickets(svc ports.TicketService) Option {
	return func(s *Server) {
		s.tickets = svc
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersion sets the version advertised to clients.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(manager *session.Manager, opts ...Option) *Server {
	s := &Server{
		manager: manager,
		logger:  logging.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("fixpath-mcp", s.version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and blocks until
// ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("MCP Server shutting down")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionParam() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by start_session"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a maintenance request walk, or resume it when session_id already exists."),
		mcp.WithString("session_id", mcp.Description("Optional id; generated when omitted")),
		mcp.WithString("profile_id", mcp.Description("Tenant profile, used to deduplicate draft tickets")),
		mcp.WithString("language", mcp.Description("Display language, en or nl")),
		mcp.WithOutputSchema[ViewResult](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Render the current step of a session."),
		sessionParam(),
		mcp.WithOutputSchema[ViewResult](),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("select_option",
		mcp.WithDescription("Pick one of the options of the current branch."),
		sessionParam(),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Id of the option to select")),
		mcp.WithOutputSchema[ViewResult](),
	), mcp.NewStructuredToolHandler(s.handleSelect))

	s.mcpServer.AddTool(mcp.NewTool("navigate_path",
		mcp.WithDescription("Jump to a node by its root-exclusive path, as returned by search_nodes or breadcrumbs."),
		sessionParam(),
		mcp.WithArray("path", mcp.Required(), mcp.WithStringItems(), mcp.Description("Node ids from the root down")),
		mcp.WithOutputSchema[ViewResult](),
	), mcp.NewStructuredToolHandler(s.handleNavigate))

	s.mcpServer.AddTool(mcp.NewTool("video_outcome",
		mcp.WithDescription("Report whether the self-help video solved the problem."),
		sessionParam(),
		mcp.WithString("outcome", mcp.Required(), mcp.Enum(string(domain.OutcomeYes), string(domain.OutcomeNo))),
		mcp.WithOutputSchema[ViewResult](),
	), mcp.NewStructuredToolHandler(s.handleVideo))

	s.mcpServer.AddTool(mcp.NewTool("go_back",
		mcp.WithDescription("Return to the previous step."),
		sessionParam(),
		mcp.WithOutputSchema[ViewResult](),
	), mcp.NewStructuredToolHandler(s.handleBack))

	s.mcpServer.AddTool(mcp.NewTool("breadcrumbs",
		mcp.WithDescription("List the trail from the start to the current step."),
		sessionParam(),
		mcp.WithOutputSchema[BreadcrumbsResult](),
	), mcp.NewStructuredToolHandler(s.handleBreadcrumbs))

	s.mcpServer.AddTool(mcp.NewTool("search_nodes",
		mcp.WithDescription("Find problems by title."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Case-insensitive text to look for")),
		mcp.WithString("language", mcp.Description("Language of the titles, en or nl")),
		mcp.WithOutputSchema[SearchResult](),
	), mcp.NewStructuredToolHandler(s.handleSearch))

	if s.tickets != nil {
		s.mcpServer.AddTool(mcp.NewTool("submit_ticket",
			mcp.WithDescription("Complete and submit the draft ticket of a session at a ticket step."),
			sessionParam(),
			mcp.WithString("description", mcp.Required(), mcp.Description("What is wrong, in the tenant's words")),
			mcp.WithString("name", mcp.Description("Contact name")),
			mcp.WithString("email", mcp.Description("Contact email")),
			mcp.WithString("phone", mcp.Description("Contact phone")),
			mcp.WithOutputSchema[SubmitResult](),
		), mcp.NewStructuredToolHandler(s.handleSubmit))
	}

	s.mcpServer.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get the full decision tree for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, err := json.Marshal(s.manager.Engine().Tree())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode tree: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args startArgs) (ViewResult, error) {
	var opts []wizard.Option
	if args.Language != "" {
		opts = append(opts, wizard.WithLanguage(args.Language))
	}
	if args.ProfileID != "" {
		opts = append(opts, wizard.WithProfile(args.ProfileID))
	}
	w, err := s.manager.Start(ctx, args.SessionID, opts...)
	if err != nil {
		return ViewResult{}, fmt.Errorf("start session: %w", err)
	}
	view, err := w.View()
	if err != nil {
		return ViewResult{}, err
	}
	return ViewResult{View: view, Accepted: true}, nil
}

func (s *Server) handleGet(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (ViewResult, error) {
	w, err := s.manager.Restore(ctx, args.SessionID)
	if err != nil {
		return ViewResult{}, err
	}
	view, err := w.View()
	if err != nil {
		return ViewResult{}, err
	}
	return ViewResult{View: view, Accepted: true}, nil
}

func (s *Server) handleSelect(ctx context.Context, _ mcp.CallToolRequest, args selectArgs) (ViewResult, error) {
	return s.transition(ctx, args.SessionID, func(ctx context.Context, w *wizard.Wizard) (bool, error) {
		return w.Select(ctx, args.NodeID)
	})
}

func (s *Server) handleNavigate(ctx context.Context, _ mcp.CallToolRequest, args navigateArgs) (ViewResult, error) {
	return s.transition(ctx, args.SessionID, func(ctx context.Context, w *wizard.Wizard) (bool, error) {
		return w.NavigateToPath(ctx, args.Path)
	})
}

func (s *Server) handleVideo(ctx context.Context, _ mcp.CallToolRequest, args videoArgs) (ViewResult, error) {
	return s.transition(ctx, args.SessionID, func(ctx context.Context, w *wizard.Wizard) (bool, error) {
		ok, err := w.HandleVideoOutcome(ctx, domain.VideoOutcome(args.Outcome))
		if errors.Is(err, domain.ErrNotAtVideoCheck) {
			return false, nil
		}
		return ok, err
	})
}

func (s *Server) handleBack(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (ViewResult, error) {
	return s.transition(ctx, args.SessionID, func(ctx context.Context, w *wizard.Wizard) (bool, error) {
		return w.GoBack(ctx)
	})
}

func (s *Server) handleBreadcrumbs(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (BreadcrumbsResult, error) {
	w, err := s.manager.Restore(ctx, args.SessionID)
	if err != nil {
		return BreadcrumbsResult{}, err
	}
	return BreadcrumbsResult{Breadcrumbs: w.Breadcrumbs()}, nil
}

func (s *Server) handleSearch(_ context.Context, _ mcp.CallToolRequest, args searchArgs) (SearchResult, error) {
	results := s.manager.Engine().Search(args.Query, args.Language)
	if results == nil {
		results = []domain.SearchResult{}
	}
	return SearchResult{Results: results}, nil
}

func (s *Server) handleSubmit(ctx context.Context, _ mcp.CallToolRequest, args submitArgs) (SubmitResult, error) {
	patch := domain.TicketPatch{Description: &args.Description}
	if contact := (domain.Contact{Name: args.Name, Email: args.Email, Phone: args.Phone}); !contact.IsZero() {
		patch.Contact = &contact
	}

	var out SubmitResult
	err := s.manager.Ticket(ctx, args.SessionID, s.tickets, func(ctx context.Context, f *tickets.Flow) error {
		if err := f.Submit(ctx, patch); err != nil {
			return err
		}
		t := f.Ticket()
		out = SubmitResult{TicketID: t.ID, Status: t.Status}
		return nil
	}, tickets.WithFlowLogger(s.logger))
	if err != nil {
		s.logger.Warn("MCP submit rejected", "session_id", args.SessionID, "err", err)
		return SubmitResult{}, err
	}
	return out, nil
}

func (s *Server) transition(ctx context.Context, sessionID string, op func(context.Context, *wizard.Wizard) (bool, error)) (ViewResult, error) {
	var out ViewResult
	_, err := s.manager.Do(ctx, sessionID, func(ctx context.Context, w *wizard.Wizard) error {
		ok, err := op(ctx, w)
		if err != nil {
			return err
		}
		view, err := w.View()
		if err != nil {
			return err
		}
		out = ViewResult{View: view, Accepted: ok}
		return nil
	})
	if err != nil {
		s.logger.Error("MCP transition failed", "session_id", sessionID, "err", err)
		return ViewResult{}, err
	}
	return out, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TreeURI, "Active Decision Tree",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.manager.Engine().Tree())
		if err != nil {
			return nil, fmt.Errorf("failed to encode tree: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      TreeURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
