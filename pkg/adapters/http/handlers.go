package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/fixpath/pkg/adapters/edge"
	"github.com/aretw0/fixpath/pkg/adapters/file"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/tickets"
	"github.com/aretw0/fixpath/pkg/wizard"
	"github.com/go-chi/chi/v5"
)

// maxRequestBytes caps session request bodies.
const maxRequestBytes = 1 << 20

var (
	// ErrNoticeNotFound is returned when dismissing an unknown notice.
	ErrNoticeNotFound = errors.New("notice not found")
	// ErrTicketsDisabled is returned by the ticket routes when no backend is configured.
	ErrTicketsDisabled = errors.New("ticket backend not configured")
)

// ViewResponse is the body of every session route.
type ViewResponse struct {
	wizard.View
	// Accepted is false when the wizard refused the transition.
	Accepted bool `json:"accepted"`
}

// StartRequest is the optional body of POST /sessions.
type StartRequest struct {
	SessionID string `json:"session_id"`
	ProfileID string `json:"profile_id"`
	Language  string `json:"language"`
}

// SubmitResponse confirms a submitted ticket.
type SubmitResponse struct {
	TicketID string              `json:"ticket_id"`
	Status   domain.TicketStatus `json:"status"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.fail(w, badRequest(err), "start session")
		return
	}

	var opts []wizard.Option
	switch {
	case req.Language != "":
		opts = append(opts, wizard.WithLanguage(req.Language))
	case r.Header.Get("Accept-Language") != "":
		opts = append(opts, wizard.WithLanguage(domain.NegotiateLanguage(r.Header.Get("Accept-Language"))))
	}
	if req.ProfileID != "" {
		opts = append(opts, wizard.WithProfile(req.ProfileID))
	}

	wz, err := s.manager.Start(r.Context(), req.SessionID, opts...)
	if err != nil {
		s.fail(w, err, "start session", "session_id", req.SessionID)
		return
	}
	view, err := wz.View()
	if err != nil {
		s.fail(w, err, "start session", "session_id", wz.SessionID())
		return
	}
	s.logger.Info("session started", "session_id", view.SessionID, "node_id", view.Node.ID)
	writeJSON(w, http.StatusOK, ViewResponse{View: view, Accepted: true})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wz, err := s.manager.Restore(r.Context(), id)
	if err != nil {
		s.fail(w, err, "get session", "session_id", id)
		return
	}
	view, err := wz.View()
	if err != nil {
		s.fail(w, err, "get session", "session_id", id)
		return
	}
	writeJSON(w, http.StatusOK, ViewResponse{View: view, Accepted: true})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.manager.Delete(r.Context(), id); err != nil {
		s.fail(w, err, "delete session", "session_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NodeID string `json:"node_id"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	s.transition(w, r, "select", func(ctx context.Context, wz *wizard.Wizard) (bool, error) {
		return wz.Select(ctx, body.NodeID)
	})
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path []string `json:"path"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	s.transition(w, r, "navigate", func(ctx context.Context, wz *wizard.Wizard) (bool, error) {
		return wz.NavigateToPath(ctx, body.Path)
	})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Outcome domain.VideoOutcome `json:"outcome"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	s.transition(w, r, "video outcome", func(ctx context.Context, wz *wizard.Wizard) (bool, error) {
		ok, err := wz.HandleVideoOutcome(ctx, body.Outcome)
		if errors.Is(err, domain.ErrNotAtVideoCheck) {
			return false, nil
		}
		return ok, err
	})
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "go back", func(ctx context.Context, wz *wizard.Wizard) (bool, error) {
		return wz.GoBack(ctx)
	})
}

func (s *Server) handleDismissNotice(w http.ResponseWriter, r *http.Request) {
	notice, err := strconv.Atoi(chi.URLParam(r, "notice"))
	if err != nil {
		s.fail(w, badRequest(err), "dismiss notice")
		return
	}
	s.transition(w, r, "dismiss notice", func(_ context.Context, wz *wizard.Wizard) (bool, error) {
		if !wz.DismissNotice(notice) {
			return false, fmt.Errorf("%w: %d", ErrNoticeNotFound, notice)
		}
		return true, nil
	})
}

// transition runs op on the session under its lock and renders the view.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, name string, op func(context.Context, *wizard.Wizard) (bool, error)) {
	id := chi.URLParam(r, "id")
	var resp ViewResponse
	_, err := s.manager.Do(r.Context(), id, func(ctx context.Context, wz *wizard.Wizard) error {
		ok, err := op(ctx, wz)
		if err != nil {
			return err
		}
		view, err := wz.View()
		if err != nil {
			return err
		}
		resp = ViewResponse{View: view, Accepted: ok}
		return nil
	})
	if err != nil {
		s.fail(w, err, name, "session_id", id)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var patch domain.TicketPatch
	if !s.decode(w, r, &patch) {
		return
	}
	var resp SubmitResponse
	s.withFlow(w, r, "submit ticket", func(ctx context.Context, flow *tickets.Flow) error {
		if err := flow.Submit(ctx, patch); err != nil {
			return err
		}
		t := flow.Ticket()
		resp = SubmitResponse{TicketID: t.ID, Status: t.Status}
		return nil
	}, func() {
		writeJSON(w, http.StatusOK, resp)
	})
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	var body edge.MediaRequest
	if !s.decode(w, r, &body) {
		return
	}
	var signed domain.SignedUploads
	s.withFlow(w, r, "sign media", func(ctx context.Context, flow *tickets.Flow) error {
		var err error
		signed, err = flow.AttachMedia(ctx, body.Files)
		return err
	}, func() {
		writeJSON(w, http.StatusOK, signed)
	})
}

// withFlow runs fn on the session's draft and calls done on success.
func (s *Server) withFlow(w http.ResponseWriter, r *http.Request, name string, fn func(context.Context, *tickets.Flow) error, done func()) {
	id := chi.URLParam(r, "id")
	if s.tickets == nil {
		s.fail(w, ErrTicketsDisabled, name, "session_id", id)
		return
	}

	var opts []tickets.FlowOption
	if s.minDescription > 0 {
		opts = append(opts, tickets.WithMinDescription(s.minDescription))
	}
	if err := s.manager.Ticket(r.Context(), id, s.tickets, fn, opts...); err != nil {
		s.fail(w, err, name, "session_id", id)
		return
	}
	done()
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lang := q.Get("lang")
	if lang == "" && r.Header.Get("Accept-Language") != "" {
		lang = domain.NegotiateLanguage(r.Header.Get("Accept-Language"))
	}
	if s.metrics != nil {
		s.metrics.ObserveSearch()
	}
	results := s.manager.Engine().Search(q.Get("q"), lang)
	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SSE: Streaming not supported")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	var watch []string
	if raw := r.URL.Query().Get("watch"); raw != "" {
		watch = strings.Split(raw, ",")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sessionID)
	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE Client Disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !watched(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// watched reports whether the diff in msg touches any of the fields.
// Undecodable messages are always delivered.
func watched(msg string, fields []string) bool {
	var diff domain.SnapshotDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range fields {
		switch strings.TrimSpace(field) {
		case "path":
			if diff.Path != nil {
				return true
			}
		case "history":
			if diff.HistoryDepth != nil {
				return true
			}
		case "ticket":
			if diff.TicketID != nil {
				return true
			}
		case "notices":
			if len(diff.Notices) > 0 {
				return true
			}
		}
	}
	return false
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(v); err != nil {
		s.fail(w, badRequest(err), "decode request")
		return false
	}
	return true
}

type requestError struct{ err error }

func (e *requestError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

// statusOf maps session and ticket errors to HTTP statuses.
func statusOf(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, file.ErrInvalidSessionID),
		errors.Is(err, tickets.ErrInputTooLarge),
		errors.Is(err, tickets.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, ErrNoticeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoTicket), errors.Is(err, domain.ErrTicketLeafMismatch), errors.Is(err, domain.ErrTreeVersionMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrTicketsDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrWizardHalted), errors.Is(err, domain.ErrTreeIntegrity):
		return http.StatusInternalServerError
	}
	return edge.StatusOf(err)
}

func (s *Server) fail(w http.ResponseWriter, err error, op string, args ...any) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", append(args, "err", err)...)
	} else {
		s.logger.Debug(op+" rejected", append(args, "err", err)...)
	}
	body := edge.NewErrorBody(err)
	if body.Code == "" {
		body.Code = codeOf(status)
	}
	writeJSON(w, status, body)
}

func codeOf(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	return "internal"
}
