package tickets

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/fixpath/pkg/domain"
)

var (
	// DefaultMaxInputSize bounds a single free-text field, in bytes.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize overrides DefaultMaxInputSize.
	EnvMaxInputSize = "FIXPATH_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeText enforces the size limit, validates UTF-8 and strips control
// characters other than newline, tab and carriage return.
func SanitizeText(input string) (string, error) {
	limit := maxInputSize()
	if len(input) > limit {
		// Rejected rather than truncated so the stored text is what the tenant typed.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	if !strings.ContainsFunc(input, isUnsafeControl) {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !isUnsafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// SanitizePatch cleans every free-text field of a patch.
// String answers are sanitized; other answer values pass through.
func SanitizePatch(p domain.TicketPatch) (domain.TicketPatch, error) {
	out := domain.TicketPatch{}

	if p.Description != nil {
		d, err := SanitizeText(*p.Description)
		if err != nil {
			return out, fmt.Errorf("description: %w", err)
		}
		out.Description = &d
	}

	if p.Contact != nil {
		c := *p.Contact
		for _, f := range []*string{&c.Name, &c.Email, &c.Phone, &c.Preferred} {
			v, err := SanitizeText(strings.TrimSpace(*f))
			if err != nil {
				return out, fmt.Errorf("contact: %w", err)
			}
			*f = v
		}
		out.Contact = &c
	}

	if len(p.Answers) > 0 {
		out.Answers = make(map[string]any, len(p.Answers))
		for k, v := range p.Answers {
			if s, ok := v.(string); ok {
				clean, err := SanitizeText(s)
				if err != nil {
					return out, fmt.Errorf("answer %q: %w", k, err)
				}
				v = clean
			}
			out.Answers[k] = v
		}
	}
	return out, nil
}

func isUnsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
