package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/wizard"
	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown into terminal output.
type Renderer func(string) (string, error)

// DefaultWidth is the wrap width used when the terminal size is unknown.
const DefaultWidth = 80

// NewRenderer returns a renderer using glamour with automatic light/dark
// detection, wrapping at width columns. Plain output is used when the
// terminal renderer cannot start.
func NewRenderer(width int) Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return PlainRenderer
	}
	return r.Render
}

// PlainRenderer returns the markdown unchanged.
func PlainRenderer(markdown string) (string, error) {
	return markdown, nil
}

// Labels holds the fixed strings of the terminal wizard.
type Labels struct {
	Options       string
	OptionMissing string
	Video         string
	VideoPrompt   string
	NoTicket      string
	StartTicket   string
	Required      string
}

// LabelsFor returns the terminal strings in lang.
func LabelsFor(lang string) Labels {
	if domain.NormalizeLanguage(lang) == domain.LangNL {
		return Labels{
			Options:       "Kies een optie",
			OptionMissing: "Staat uw probleem er niet bij? Zoek met /tekst.",
			Video:         "Bekijk eerst deze video",
			VideoPrompt:   "Is het probleem opgelost? (y/n)",
			NoTicket:      "Hiervoor is geen melding nodig.",
			StartTicket:   "We maken een melding voor u aan.",
			Required:      "Benodigd",
		}
	}
	return Labels{
		Options:       "Choose an option",
		OptionMissing: "Problem not listed? Search with /text.",
		Video:         "Watch this video first",
		VideoPrompt:   "Did this solve the problem? (y/n)",
		NoTicket:      "No ticket is needed for this.",
		StartTicket:   "We are drafting a ticket for you.",
		Required:      "Required",
	}
}

// Markdown renders a wizard view as a markdown document.
func Markdown(v wizard.View, l Labels) string {
	var sb strings.Builder

	crumbs := make([]string, len(v.Breadcrumbs))
	for i, c := range v.Breadcrumbs {
		crumbs[i] = c.Label
	}
	fmt.Fprintf(&sb, "_%s_\n\n", strings.Join(crumbs, " › "))
	fmt.Fprintf(&sb, "# %s\n\n", v.Node.Title)

	switch v.Phase {
	case domain.PhaseBranch:
		fmt.Fprintf(&sb, "%s:\n\n", l.Options)
		for i, o := range v.Options {
			marker := ""
			if o.Selected {
				marker = " ✓"
			}
			fmt.Fprintf(&sb, "%d. %s%s\n", i+1, o.Title, marker)
		}
		if v.OptionMissing {
			fmt.Fprintf(&sb, "\n> %s\n", l.OptionMissing)
		}
	case domain.PhaseVideoCheck:
		fmt.Fprintf(&sb, "%s: <%s>\n\n**%s**\n", l.Video, v.Node.VideoURL, l.VideoPrompt)
	case domain.PhaseNoTicket:
		fmt.Fprintf(&sb, "%s\n", l.NoTicket)
		if v.Node.LeafReason != "" {
			fmt.Fprintf(&sb, "\n`%s`\n", v.Node.LeafReason)
		}
	case domain.PhaseStartTicket:
		fmt.Fprintf(&sb, "%s\n", l.StartTicket)
		if len(v.Node.RequiredFields) > 0 {
			fmt.Fprintf(&sb, "\n%s: %s\n", l.Required, strings.Join(v.Node.RequiredFields, ", "))
		}
		if v.TicketID != "" {
			fmt.Fprintf(&sb, "\nTicket `%s`\n", v.TicketID)
		}
	}
	return sb.String()
}
