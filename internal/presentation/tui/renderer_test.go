package tui_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/fixpath/internal/presentation/tui"
	"github.com/aretw0/fixpath/internal/runtime"
	"github.com/aretw0/fixpath/internal/testutils"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown_Phases(t *testing.T) {
	ctx := context.Background()
	w := wizard.New(runtime.NewEngine(testutils.SampleTree(t)), "tui-1")
	labels := tui.LabelsFor(domain.LangEN)

	v, err := w.View()
	require.NoError(t, err)
	md := tui.Markdown(v, labels)
	assert.Contains(t, md, "# What needs fixing?")
	assert.Contains(t, md, "1. Bathroom")
	assert.Contains(t, md, "3. Kitchen")

	_, err = w.Select(ctx, testutils.Bathroom)
	require.NoError(t, err)
	v, err = w.View()
	require.NoError(t, err)
	md = tui.Markdown(v, labels)
	assert.Contains(t, md, "_Start › Bathroom_")
	assert.Contains(t, md, labels.OptionMissing)

	_, err = w.Select(ctx, testutils.Clogged)
	require.NoError(t, err)
	v, err = w.View()
	require.NoError(t, err)
	md = tui.Markdown(v, labels)
	assert.Contains(t, md, "https://videos.example/unclog.mp4")
	assert.Contains(t, md, labels.VideoPrompt)

	_, err = w.HandleVideoOutcome(ctx, domain.OutcomeNo)
	require.NoError(t, err)
	v, err = w.View()
	require.NoError(t, err)
	md = tui.Markdown(v, labels)
	assert.Contains(t, md, labels.StartTicket)
	assert.Contains(t, md, "Required: description")
}

func TestLabelsFor(t *testing.T) {
	assert.Equal(t, "Kies een optie", tui.LabelsFor("nl-BE").Options)
	assert.Equal(t, "Choose an option", tui.LabelsFor("fr").Options)
}

func TestPlainRenderer(t *testing.T) {
	out, err := tui.PlainRenderer("# Title")
	require.NoError(t, err)
	assert.Equal(t, "# Title", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_|")
}
