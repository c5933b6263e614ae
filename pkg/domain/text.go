package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Supported display languages.
const (
	LangEN = "en"
	LangNL = "nl"
)

// UntitledLabel is rendered when no translation is available.
const UntitledLabel = "Untitled"

// LocalizedText is a title with per-language variants.
// On the wire it is either an object keyed by language ({"en": "...", "nl": "..."})
// or a plain string, which is used for every language.
type LocalizedText struct {
	plain  string
	values map[string]string
}

// Text creates a language-independent text.
func Text(s string) LocalizedText {
	return LocalizedText{plain: s}
}

// Localized creates an English/Dutch text.
func Localized(en, nl string) LocalizedText {
	t := LocalizedText{values: make(map[string]string, 2)}
	if en != "" {
		t.values[LangEN] = en
	}
	if nl != "" {
		t.values[LangNL] = nl
	}
	return t
}

// Translations creates a text from an arbitrary language map.
func Translations(values map[string]string) LocalizedText {
	t := LocalizedText{values: make(map[string]string, len(values))}
	for k, v := range values {
		if v != "" {
			t.values[NormalizeLanguage(k)] = v
		}
	}
	return t
}

// IsZero reports whether the text carries no translation at all.
func (t LocalizedText) IsZero() bool {
	return t.plain == "" && len(t.values) == 0
}

// Resolve returns the text for lang, falling back to English, then Dutch,
// then the literal "Untitled".
func (t LocalizedText) Resolve(lang string) string {
	if t.plain != "" {
		return t.plain
	}
	if v, ok := t.values[NormalizeLanguage(lang)]; ok {
		return v
	}
	if v, ok := t.values[LangEN]; ok {
		return v
	}
	if v, ok := t.values[LangNL]; ok {
		return v
	}
	return UntitledLabel
}

// String resolves the text in English.
func (t LocalizedText) String() string {
	return t.Resolve(LangEN)
}

// NormalizeLanguage reduces a BCP 47 tag ("nl-BE", "en_US") to its base language.
func NormalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return strings.ToLower(lang)
	}
	base, _ := tag.Base()
	return base.String()
}

var supportedMatcher = language.NewMatcher([]language.Tag{language.English, language.Dutch})

// NegotiateLanguage picks the best supported language for an
// Accept-Language header. It falls back to English.
func NegotiateLanguage(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return LangEN
	}
	_, idx, conf := supportedMatcher.Match(tags...)
	if conf == language.No || idx != 1 {
		return LangEN
	}
	return LangNL
}

func (t LocalizedText) asValue() any {
	if t.plain != "" || len(t.values) == 0 {
		return t.plain
	}
	return t.values
}

// MarshalJSON writes a plain string or a language object.
func (t LocalizedText) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.asValue())
}

// UnmarshalJSON accepts a plain string or a language object.
func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = LocalizedText{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("localized text: %w", err)
	}
	*t = Translations(m)
	return nil
}

// MarshalYAML writes a plain string or a language mapping.
func (t LocalizedText) MarshalYAML() (any, error) {
	return t.asValue(), nil
}

// UnmarshalYAML accepts a scalar or a language mapping.
func (t *LocalizedText) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*t = Text(value.Value)
		return nil
	case yaml.MappingNode:
		var m map[string]string
		if err := value.Decode(&m); err != nil {
			return fmt.Errorf("localized text: %w", err)
		}
		*t = Translations(m)
		return nil
	}
	return fmt.Errorf("localized text: unexpected yaml node kind %d at line %d", value.Kind, value.Line)
}
