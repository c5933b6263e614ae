package media

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// DefaultURLTTL is how long a signed upload URL stays valid.
const DefaultURLTTL = 15 * time.Minute

var (
	ErrExpired      = errors.New("upload url expired")
	ErrBadSignature = errors.New("upload url signature mismatch")
)

// Signer issues upload slots whose URLs carry an expiry and a keyed BLAKE3
// signature over the storage path.
type Signer struct {
	key     [32]byte
	baseURL string
	ttl     time.Duration
	policy  Policy
	now     func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithPolicy overrides DefaultPolicy.
func WithPolicy(p Policy) SignerOption {
	return func(s *Signer) {
		s.policy = p
	}
}

// WithTTL overrides DefaultURLTTL.
func WithTTL(ttl time.Duration) SignerOption {
	return func(s *Signer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner creates a signer. secret may be any length; it is condensed to
// a 32 byte key. baseURL is the upload endpoint prefix.
func NewSigner(secret []byte, baseURL string, opts ...SignerOption) *Signer {
	s := &Signer{
		key:     blake3.Sum256(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     DefaultURLTTL,
		policy:  DefaultPolicy(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the policy enforced by Sign.
func (s *Signer) Policy() Policy {
	return s.policy
}

// Sign checks files against the policy and returns one upload per file.
func (s *Signer) Sign(ticketID string, files []domain.FileSpec) (domain.SignedUploads, error) {
	if err := s.policy.Check(files); err != nil {
		return domain.SignedUploads{}, err
	}

	expires := s.now().Add(s.ttl).Unix()
	out := domain.SignedUploads{Uploads: make([]domain.Upload, 0, len(files))}
	for _, f := range files {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.SignedUploads{}, fmt.Errorf("media id: %w", err)
		}
		storage := StoragePath(ticketID, id.String(), f.Name)
		out.Uploads = append(out.Uploads, domain.Upload{
			MediaID:     id.String(),
			PutURL:      s.url(storage, expires),
			StoragePath: storage,
		})
	}
	return out, nil
}

// Verify checks a signature produced by Sign.
func (s *Signer) Verify(storagePath string, expires int64, sig string) error {
	if s.now().Unix() > expires {
		return ErrExpired
	}
	want := s.signature(storagePath, expires)
	if subtle.ConstantTimeCompare([]byte(want), []byte(sig)) != 1 {
		return ErrBadSignature
	}
	return nil
}

// VerifyURL checks a put_url issued by Sign.
func (s *Signer) VerifyURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad expires", ErrBadSignature)
	}
	storage := strings.TrimPrefix(u.Path, "/")
	if base, err := url.Parse(s.baseURL); err == nil {
		storage = strings.TrimPrefix(u.Path, strings.TrimRight(base.Path, "/")+"/")
	}
	return s.Verify(storage, expires, u.Query().Get("sig"))
}

func (s *Signer) url(storagePath string, expires int64) string {
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", s.signature(storagePath, expires))
	return s.baseURL + "/" + storagePath + "?" + q.Encode()
}

func (s *Signer) signature(storagePath string, expires int64) string {
	h, err := blake3.NewKeyed(s.key[:])
	if err != nil {
		panic("media: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = h.Write([]byte(storagePath + "\n" + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// StoragePath is tickets/<ticket>/<media_id>-<safe name>.
func StoragePath(ticketID, mediaID, name string) string {
	return path.Join("tickets", ticketID, mediaID+"-"+SafeName(name))
}

// SafeName reduces a client file name to letters, digits, dot, dash and
// underscore. Directory components are dropped.
func SafeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
