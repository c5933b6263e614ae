package edge

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aretw0/fixpath/internal/logging"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// maxRequestBytes caps request bodies accepted by the Handler.
const maxRequestBytes = 1 << 20

// Handler serves the edge function contract on top of any TicketService,
// so a local backend (memory, sqlite) can stand in for the hosted one.
type Handler struct {
	svc    ports.TicketService
	logger *slog.Logger
	router chi.Router
}

// NewHandler creates a handler with the ticket routes at its root.
func NewHandler(svc ports.TicketService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &Handler{svc: svc, logger: logger, router: chi.NewRouter()}
	h.Mount(h.router)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Mount registers the ticket routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/tickets/draft", h.createDraft)
	r.Patch("/tickets/{id}", h.update)
	r.Post("/tickets/{id}/finalize", h.finalize)
	r.Post("/tickets/{id}/media", h.signUpload)
}

func (h *Handler) createDraft(w http.ResponseWriter, r *http.Request) {
	var req domain.DraftRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.Tree.ID == "" || req.Tree.NodeID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Message: "sessionId, tree.id and tree.node_id are required"})
		return
	}

	draft, err := h.svc.CreateDraft(r.Context(), req)
	if err != nil {
		h.fail(w, err, "create draft", "session_id", req.SessionID)
		return
	}
	status := http.StatusOK
	if draft.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, draft)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch domain.TicketPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := h.svc.Update(r.Context(), id, patch); err != nil {
		h.fail(w, err, "update ticket", "ticket_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Finalize(r.Context(), id); err != nil {
		h.fail(w, err, "finalize ticket", "ticket_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) signUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body MediaRequest
	if !decodeBody(w, r, &body) {
		return
	}
	signed, err := h.svc.SignUpload(r.Context(), id, body.Files)
	if err != nil {
		h.fail(w, err, "sign upload", "ticket_id", id)
		return
	}
	writeJSON(w, http.StatusOK, signed)
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string, args ...any) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg+" failed", append(args, "err", err)...)
	} else {
		h.logger.Debug(msg+" rejected", append(args, "err", err)...)
	}
	writeJSON(w, status, NewErrorBody(err))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Message: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// WriteError renders err with the status StatusOf assigns to it.
func WriteError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusOf(err), NewErrorBody(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
