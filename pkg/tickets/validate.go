package tickets

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/fixpath/pkg/domain"
)

// MinDescriptionLength is the minimum description length, in characters,
// for tickets of the standard_wizard leaf reason.
const MinDescriptionLength = 20

// Field names understood by ValidateForFinalize besides answer keys.
const (
	FieldDescription = "description"
	FieldContact     = "contact"
	FieldEmail       = "email"
	FieldPhone       = "phone"
)

// BackendRequired are the fields every backend insists on before submitting.
var BackendRequired = []string{FieldDescription, FieldContact}

// ValidateForFinalize checks a draft before it is submitted.
// required lists field names (see the Field constants) or answer keys.
// minDescription applies to standard_wizard tickets; zero means
// MinDescriptionLength. All failures are returned as one
// *domain.AggregateError of *domain.ValidationError.
func ValidateForFinalize(t domain.Ticket, required []string, minDescription int) error {
	if minDescription <= 0 {
		minDescription = MinDescriptionLength
	}

	var errs []error
	seen := make(map[string]bool, len(required))
	for _, field := range required {
		if seen[field] {
			continue
		}
		seen[field] = true
		if reason := missing(t, field); reason != "" {
			errs = append(errs, &domain.ValidationError{Key: field, Reason: reason})
		}
	}

	desc := strings.TrimSpace(t.Description)
	if t.Tree.LeafReason == domain.LeafReasonStandardWizard && desc != "" {
		if n := utf8.RuneCountInString(desc); n < minDescription {
			errs = append(errs, &domain.ValidationError{
				Key:    FieldDescription,
				Reason: fmt.Sprintf("must be at least %d characters, got %d", minDescription, n),
			})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &domain.AggregateError{Errors: errs}
}

func missing(t domain.Ticket, field string) string {
	switch field {
	case FieldDescription:
		if strings.TrimSpace(t.Description) == "" {
			return "is required"
		}
	case FieldContact:
		if t.Contact.Email == "" && t.Contact.Phone == "" {
			return "an email address or phone number is required"
		}
	case FieldEmail:
		if t.Contact.Email == "" {
			return "is required"
		}
	case FieldPhone:
		if t.Contact.Phone == "" {
			return "is required"
		}
	default:
		v, ok := t.Answers[field]
		if !ok || v == nil {
			return "is required"
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			return "is required"
		}
	}
	return ""
}
