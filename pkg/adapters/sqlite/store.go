// Package sqlite is a reference ticket backend on SQLite.
//
// Draft idempotency is enforced by a UNIQUE partial index over the draft key
// (owner, tree, version, leaf) restricted to draft rows, so a submitted
// ticket releases the key and concurrent creates collapse to one row.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/media"
	"github.com/aretw0/fixpath/pkg/tickets"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const timeLayout = time.RFC3339Nano

// Store implements ports.TicketService and ports.TicketReader.
type Store struct {
	db      *sql.DB
	signer  *media.Signer
	minDesc int
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithSigner sets the media signer used by SignUpload.
func WithSigner(s *media.Signer) Option {
	return func(st *Store) {
		st.signer = s
	}
}

// WithMinDescription overrides tickets.MinDescriptionLength.
func WithMinDescription(n int) Option {
	return func(st *Store) {
		st.minDesc = n
	}
}

// Open creates or opens a SQLite database at the given path and applies
// the schema. Use ":memory:" only in tests; each connection would get its
// own database, so the pool is pinned to one connection.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.signer == nil {
		s.signer = media.NewSigner([]byte("fixpath-sqlite"), "sqlite://uploads")
	}
	return s, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateDraft inserts a draft or returns the open draft for the same key.
func (s *Store) CreateDraft(ctx context.Context, req domain.DraftRequest) (domain.DraftTicket, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.DraftTicket{}, fmt.Errorf("ticket id: %w", err)
	}
	now := s.now().UTC().Format(timeLayout)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets
		(id, owner, session_id, tree_id, tree_version, node_id, leaf_type, leaf_reason, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'draft', ?, ?)
		ON CONFLICT DO NOTHING
	`,
		id.String(),
		req.Owner(),
		req.SessionID,
		req.Tree.ID,
		req.Tree.Version,
		req.Tree.NodeID,
		string(req.Tree.LeafType),
		req.Tree.LeafReason,
		now,
		now,
	)
	if err != nil {
		return domain.DraftTicket{}, fmt.Errorf("create draft: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return domain.DraftTicket{TicketID: id.String(), Created: true}, nil
	}

	var existing string
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM tickets
		WHERE owner = ? AND tree_id = ? AND tree_version = ? AND node_id = ? AND status = 'draft'
	`, req.Owner(), req.Tree.ID, req.Tree.Version, req.Tree.NodeID).Scan(&existing)
	if err != nil {
		return domain.DraftTicket{}, fmt.Errorf("create draft: lookup existing: %w", err)
	}
	return domain.DraftTicket{TicketID: existing, Created: false}, nil
}

// Update merges a patch into a draft.
func (s *Store) Update(ctx context.Context, ticketID string, patch domain.TicketPatch) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := s.draft(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		t.Apply(patch)

		contact, answers, err := encodeDetails(t)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE tickets SET description = ?, contact = ?, answers = ?, updated_at = ?
			WHERE id = ?
		`, t.Description, contact, answers, s.now().UTC().Format(timeLayout), ticketID)
		if err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		return nil
	})
}

// Finalize validates and submits a draft. A failed validation leaves the
// row untouched.
func (s *Store) Finalize(ctx context.Context, ticketID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := s.draft(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if err := tickets.ValidateForFinalize(*t, tickets.BackendRequired, s.minDesc); err != nil {
			return err
		}

		now := s.now().UTC().Format(timeLayout)
		_, err = tx.ExecContext(ctx, `
			UPDATE tickets SET status = 'submitted', submitted_at = ?, updated_at = ?
			WHERE id = ? AND status = 'draft'
		`, now, now, ticketID)
		if err != nil {
			return fmt.Errorf("finalize ticket: %w", err)
		}
		return nil
	})
}

// SignUpload issues upload slots for a draft and records them.
func (s *Store) SignUpload(ctx context.Context, ticketID string, files []domain.FileSpec) (domain.SignedUploads, error) {
	var signed domain.SignedUploads
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := s.draft(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if limit := s.signer.Policy().MaxFiles; limit > 0 && len(t.Media)+len(files) > limit {
			return &domain.ValidationError{
				Key:    "files",
				Reason: fmt.Sprintf("ticket already has %d of %d files", len(t.Media), limit),
			}
		}

		signed, err = s.signer.Sign(ticketID, files)
		if err != nil {
			return err
		}
		for i, u := range signed.Uploads {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO media (media_id, ticket_id, put_url, storage_path, seq)
				VALUES (?, ?, ?, ?, ?)
			`, u.MediaID, ticketID, u.PutURL, u.StoragePath, len(t.Media)+i)
			if err != nil {
				return fmt.Errorf("record upload: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.SignedUploads{}, err
	}
	return signed, nil
}

// Get returns a ticket record.
func (s *Store) Get(ctx context.Context, ticketID string) (domain.Ticket, error) {
	var t *domain.Ticket
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = s.load(ctx, tx, ticketID)
		return err
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return *t, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) draft(ctx context.Context, tx *sql.Tx, ticketID string) (*domain.Ticket, error) {
	t, err := s.load(ctx, tx, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TicketDraft {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrTicketNotDraft, ticketID, t.Status)
	}
	return t, nil
}

func (s *Store) load(ctx context.Context, tx *sql.Tx, ticketID string) (*domain.Ticket, error) {
	var (
		t                    domain.Ticket
		leafType, status     string
		contact, answers     string
		createdAt, updatedAt string
		submittedAt          sql.NullString
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, owner, session_id, tree_id, tree_version, node_id, leaf_type, leaf_reason,
		       status, description, contact, answers, created_at, updated_at, submitted_at
		FROM tickets WHERE id = ?
	`, ticketID).Scan(
		&t.ID, &t.Owner, &t.SessionID, &t.Tree.ID, &t.Tree.Version, &t.Tree.NodeID, &leafType, &t.Tree.LeafReason,
		&status, &t.Description, &contact, &answers, &createdAt, &updatedAt, &submittedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTicketNotFound, ticketID)
	}
	if err != nil {
		return nil, fmt.Errorf("load ticket: %w", err)
	}

	t.Tree.LeafType = domain.LeafType(leafType)
	t.Status = domain.TicketStatus(status)
	if err := json.Unmarshal([]byte(contact), &t.Contact); err != nil {
		return nil, fmt.Errorf("decode contact: %w", err)
	}
	if err := json.Unmarshal([]byte(answers), &t.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}
	if submittedAt.Valid {
		at, err := time.Parse(timeLayout, submittedAt.String)
		if err != nil {
			return nil, fmt.Errorf("decode submitted_at: %w", err)
		}
		t.SubmittedAt = &at
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT media_id, put_url, storage_path FROM media WHERE ticket_id = ? ORDER BY seq
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("load media: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var u domain.Upload
		if err := rows.Scan(&u.MediaID, &u.PutURL, &u.StoragePath); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		t.Media = append(t.Media, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load media: %w", err)
	}
	return &t, nil
}

func encodeDetails(t *domain.Ticket) (contact, answers string, err error) {
	c, err := json.Marshal(t.Contact)
	if err != nil {
		return "", "", fmt.Errorf("encode contact: %w", err)
	}
	a := t.Answers
	if a == nil {
		a = map[string]any{}
	}
	ab, err := json.Marshal(a)
	if err != nil {
		return "", "", fmt.Errorf("encode answers: %w", err)
	}
	return string(c), string(ab), nil
}
