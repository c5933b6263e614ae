package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/fixpath"
	"github.com/aretw0/fixpath/internal/presentation/tui"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/tickets"
	"github.com/aretw0/fixpath/pkg/wizard"
)

// RunOptions configures an interactive session.
type RunOptions struct {
	SessionID string
	// Language overrides the session language. Empty keeps the stored one.
	Language string
	// Fresh discards a stored session with the same id first.
	Fresh bool
	// Quiet suppresses the banner and system messages.
	Quiet    bool
	Renderer tui.Renderer
}

const helpText = `Commands:
  <n>        choose option n (or search result n right after a search)
  /<text>    search the tree
  y, n       answer the video check
  b          go back
  submit     fill in and submit the ticket
  d <id>     dismiss a notice
  q          quit`

// Run walks the portal tree interactively, reading commands from in and
// writing the rendered steps to out. It returns nil on quit, end of input
// or interruption.
func Run(ctx context.Context, portal *fixpath.Portal, in io.Reader, out io.Writer, opts RunOptions) error {
	if opts.Renderer == nil {
		opts.Renderer = tui.PlainRenderer
	}
	if !opts.Quiet {
		tui.PrintBanner(out)
	}

	if opts.Fresh && opts.SessionID != "" {
		if err := portal.Manager.Delete(ctx, opts.SessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
	}

	// New sessions default to the configured language; resumed ones keep
	// their own unless a language is requested.
	lang := opts.Language
	if lang == "" {
		_, err := portal.Manager.Load(ctx, opts.SessionID)
		if opts.SessionID == "" || errors.Is(err, domain.ErrSessionNotFound) {
			lang = portal.Config.Language
		}
	}
	var startOpts []wizard.Option
	if lang != "" {
		startOpts = append(startOpts, wizard.WithLanguage(lang))
	}
	w, err := portal.Manager.Start(ctx, opts.SessionID, startOpts...)
	if err != nil {
		return handleExecutionError(fmt.Errorf("failed to start session: %w", err))
	}

	r := &repl{
		portal: portal,
		id:     w.SessionID(),
		lines:  readLines(ctx, in),
		out:    out,
		render: opts.Renderer,
		quiet:  opts.Quiet,
	}
	if !opts.Quiet {
		printSystemMessage(out, "Session '%s' active.", r.id)
	}
	err = r.loop(ctx)
	if !opts.Quiet && err == nil {
		printSystemMessage(out, "Session '%s' saved.", r.id)
	}
	return handleExecutionError(err)
}

type repl struct {
	portal  *fixpath.Portal
	id      string
	lines   <-chan string
	out     io.Writer
	render  tui.Renderer
	quiet   bool
	results []domain.SearchResult
}

var errQuit = errors.New("quit")

func (r *repl) loop(ctx context.Context) error {
	redraw := true
	for {
		if redraw {
			if err := r.draw(ctx); err != nil {
				return err
			}
		}
		fmt.Fprint(r.out, "> ")
		line, err := r.next(ctx)
		if err != nil {
			return err
		}
		redraw, err = r.handle(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (r *repl) next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	}
}

func (r *repl) draw(ctx context.Context) error {
	var (
		view wizard.View
		lang string
	)
	_, err := r.portal.Manager.Do(ctx, r.id, func(_ context.Context, w *wizard.Wizard) error {
		var err error
		view, err = w.View()
		lang = w.Language()
		return err
	})
	if err != nil {
		return err
	}

	rendered, err := r.render(tui.Markdown(view, tui.LabelsFor(lang)))
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, rendered)
	for _, n := range view.Notices {
		tui.Notice(r.out, true, fmt.Sprintf("[%d] %s", n.ID, n.Message))
	}
	return nil
}

// handle runs one command and reports whether the step must be redrawn.
func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	results := r.results
	r.results = nil

	switch {
	case line == "":
		return false, nil
	case line == "q" || line == "quit" || line == "exit":
		return false, errQuit
	case line == "?" || line == "help":
		fmt.Fprintln(r.out, helpText)
		return false, nil
	case line == "b" || line == "back":
		return r.transition(ctx, "nothing to go back to", func(ctx context.Context, w *wizard.Wizard) (bool, error) {
			return w.GoBack(ctx)
		})
	case line == "y" || line == "yes" || line == "n" || line == "no":
		outcome := domain.OutcomeYes
		if line[0] == 'n' {
			outcome = domain.OutcomeNo
		}
		return r.transition(ctx, "this step has no video check", func(ctx context.Context, w *wizard.Wizard) (bool, error) {
			ok, err := w.HandleVideoOutcome(ctx, outcome)
			if errors.Is(err, domain.ErrNotAtVideoCheck) {
				return false, nil
			}
			return ok, err
		})
	case strings.HasPrefix(line, "/"):
		return false, r.search(ctx, strings.TrimSpace(line[1:]))
	case line == "submit":
		return r.submit(ctx)
	case strings.HasPrefix(line, "d "):
		return r.dismiss(ctx, strings.TrimSpace(line[2:]))
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 {
		fmt.Fprintf(r.out, "unknown command %q, type ? for help\n", line)
		return false, nil
	}
	if results != nil {
		if n > len(results) {
			fmt.Fprintf(r.out, "no search result %d\n", n)
			return false, nil
		}
		path := results[n-1].Path
		return r.transition(ctx, "that result is no longer reachable", func(ctx context.Context, w *wizard.Wizard) (bool, error) {
			return w.NavigateToPath(ctx, path)
		})
	}
	return r.transition(ctx, fmt.Sprintf("no option %d here", n), func(ctx context.Context, w *wizard.Wizard) (bool, error) {
		choices := w.Choices()
		if n > len(choices) {
			return false, nil
		}
		return w.Select(ctx, choices[n-1].NodeID)
	})
}

func (r *repl) transition(ctx context.Context, refused string, op func(context.Context, *wizard.Wizard) (bool, error)) (bool, error) {
	var accepted bool
	_, err := r.portal.Manager.Do(ctx, r.id, func(ctx context.Context, w *wizard.Wizard) error {
		var err error
		accepted, err = op(ctx, w)
		return err
	})
	if err != nil {
		return false, err
	}
	if !accepted {
		fmt.Fprintln(r.out, refused)
		return false, nil
	}
	r.portal.Manager.Wait()
	return true, nil
}

func (r *repl) search(ctx context.Context, query string) error {
	var results []domain.SearchResult
	_, err := r.portal.Manager.Do(ctx, r.id, func(_ context.Context, w *wizard.Wizard) error {
		results = w.Search(query)
		return nil
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(r.out, "nothing matches %q\n", query)
		return nil
	}
	for i, res := range results {
		fmt.Fprintf(r.out, "%d. %s (%s)\n", i+1, res.Title, strings.Join(res.Path, " › "))
	}
	r.results = results
	return nil
}

func (r *repl) dismiss(ctx context.Context, arg string) (bool, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintf(r.out, "notice id must be a number, got %q\n", arg)
		return false, nil
	}
	return r.transition(ctx, fmt.Sprintf("no notice %d", id), func(_ context.Context, w *wizard.Wizard) (bool, error) {
		return w.DismissNotice(id), nil
	})
}

func (r *repl) submit(ctx context.Context) (bool, error) {
	var ticketID string
	_, err := r.portal.Manager.Do(ctx, r.id, func(_ context.Context, w *wizard.Wizard) error {
		ticketID = w.TicketID()
		return nil
	})
	if err != nil {
		return false, err
	}
	if ticketID == "" {
		fmt.Fprintln(r.out, "there is no ticket to submit on this step")
		return false, nil
	}

	fmt.Fprint(r.out, "Description: ")
	description, err := r.next(ctx)
	if err != nil {
		return false, err
	}
	fmt.Fprint(r.out, "Contact (email or phone): ")
	contact, err := r.next(ctx)
	if err != nil {
		return false, err
	}

	patch := domain.TicketPatch{Description: &description, Contact: parseContact(contact)}
	var ticket domain.Ticket
	err = r.portal.Manager.Ticket(ctx, r.id, r.portal.Tickets, func(ctx context.Context, f *tickets.Flow) error {
		if err := f.Submit(ctx, patch); err != nil {
			return err
		}
		ticket = f.Ticket()
		return nil
	}, tickets.WithMinDescription(r.portal.Config.Ticket.MinDescription))

	switch {
	case errors.Is(err, domain.ErrNoTicket):
		fmt.Fprintln(r.out, "there is no ticket to submit on this step")
		return false, nil
	case domain.ValidationErrors(err) != nil:
		for _, e := range domain.ValidationErrors(err) {
			fmt.Fprintf(r.out, "  %v\n", e)
		}
		return false, nil
	case errors.Is(err, tickets.ErrInputTooLarge), errors.Is(err, tickets.ErrInvalidUTF8):
		fmt.Fprintf(r.out, "  %v\n", err)
		return false, nil
	case err != nil:
		return false, err
	}
	if !r.quiet {
		printSystemMessage(r.out, "Ticket '%s' %s.", ticket.ID, ticket.Status)
	}
	return false, nil
}

func parseContact(s string) *domain.Contact {
	if s == "" {
		return nil
	}
	if strings.Contains(s, "@") {
		return &domain.Contact{Email: s}
	}
	return &domain.Contact{Phone: s}
}

// readLines feeds lines from in until it is exhausted or ctx ends.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
