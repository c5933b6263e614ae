package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLocalizedText_Resolve(t *testing.T) {
	tests := []struct {
		name string
		text domain.LocalizedText
		lang string
		want string
	}{
		{"Requested Language", domain.Localized("Bathroom", "Badkamer"), "nl", "Badkamer"},
		{"Regional Tag", domain.Localized("Bathroom", "Badkamer"), "nl-BE", "Badkamer"},
		{"Fallback To English", domain.Localized("Bathroom", "Badkamer"), "fr", "Bathroom"},
		{"Fallback To Dutch", domain.Localized("", "Badkamer"), "fr", "Badkamer"},
		{"Untitled", domain.LocalizedText{}, "en", "Untitled"},
		{"Plain String", domain.Text("Kitchen"), "nl", "Kitchen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.text.Resolve(tt.lang))
		})
	}
}

func TestLocalizedText_JSON(t *testing.T) {
	var plain domain.LocalizedText
	require.NoError(t, json.Unmarshal([]byte(`"Leaking tap"`), &plain))
	assert.Equal(t, "Leaking tap", plain.Resolve("nl"))

	var obj domain.LocalizedText
	require.NoError(t, json.Unmarshal([]byte(`{"en":"Leaking tap","nl":"Lekkende kraan"}`), &obj))
	assert.Equal(t, "Lekkende kraan", obj.Resolve("nl"))

	out, err := json.Marshal(plain)
	require.NoError(t, err)
	assert.JSONEq(t, `"Leaking tap"`, string(out))

	out, err = json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"en":"Leaking tap","nl":"Lekkende kraan"}`, string(out))
}

func TestLocalizedText_YAML(t *testing.T) {
	var doc struct {
		A domain.LocalizedText `yaml:"a"`
		B domain.LocalizedText `yaml:"b"`
	}
	src := "a: Heating\nb:\n  en: Radiator cold\n  nl: Radiator koud\n"
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	assert.Equal(t, "Heating", doc.A.Resolve("en"))
	assert.Equal(t, "Radiator koud", doc.B.Resolve("nl"))
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "nl", domain.NormalizeLanguage("nl-BE"))
	assert.Equal(t, "en", domain.NormalizeLanguage("en_US"))
	assert.Equal(t, "", domain.NormalizeLanguage(" "))
}

func TestNegotiateLanguage(t *testing.T) {
	tests := map[string]string{
		"nl-BE,nl;q=0.9":  domain.LangNL,
		"nl":              domain.LangNL,
		"en-US,en;q=0.8":  domain.LangEN,
		"fr-FR":           domain.LangEN,
		"":                domain.LangEN,
		"not a header;;=": domain.LangEN,
	}
	for header, want := range tests {
		assert.Equal(t, want, domain.NegotiateLanguage(header), "header %q", header)
	}
}
