// Package media enforces the upload policy for ticket attachments and signs
// short-lived upload URLs.
package media

import (
	"fmt"
	"mime"
	"slices"
	"strings"

	"github.com/aretw0/fixpath/pkg/domain"
)

// Default limits for ticket attachments.
const (
	DefaultMaxFiles = 5
	DefaultMaxBytes = 10 << 20
)

// DefaultAllowedTypes is the MIME allowlist for attachments.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/heic",
	"image/webp",
	"video/mp4",
	"video/quicktime",
	"application/pdf",
}

// Policy bounds one signing request.
type Policy struct {
	MaxFiles     int
	MaxBytes     int64
	AllowedTypes []string
}

// DefaultPolicy returns the standard attachment limits.
func DefaultPolicy() Policy {
	return Policy{
		MaxFiles:     DefaultMaxFiles,
		MaxBytes:     DefaultMaxBytes,
		AllowedTypes: slices.Clone(DefaultAllowedTypes),
	}
}

// Check validates a batch of files. Every violation is reported as a
// *domain.ValidationError keyed by files[i].
func (p Policy) Check(files []domain.FileSpec) error {
	var errs []error
	if len(files) == 0 {
		errs = append(errs, &domain.ValidationError{Key: "files", Reason: "at least one file is required"})
	}
	if p.MaxFiles > 0 && len(files) > p.MaxFiles {
		errs = append(errs, &domain.ValidationError{
			Key:    "files",
			Reason: fmt.Sprintf("at most %d files per ticket, got %d", p.MaxFiles, len(files)),
		})
	}

	for i, f := range files {
		key := fmt.Sprintf("files[%d]", i)
		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, &domain.ValidationError{Key: key, Reason: "name is required"})
		}
		if f.Size <= 0 {
			errs = append(errs, &domain.ValidationError{Key: key, Reason: "size must be positive"})
		} else if p.MaxBytes > 0 && f.Size > p.MaxBytes {
			errs = append(errs, &domain.ValidationError{
				Key:    key,
				Reason: fmt.Sprintf("%d bytes exceeds the %d byte limit", f.Size, p.MaxBytes),
			})
		}
		if !p.allows(f.ContentType) {
			errs = append(errs, &domain.ValidationError{
				Key:    key,
				Reason: fmt.Sprintf("content type %q is not allowed", f.ContentType),
			})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &domain.AggregateError{Errors: errs}
}

func (p Policy) allows(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return slices.Contains(p.AllowedTypes, mt)
}
