package fixpath_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/fixpath"
	"github.com/aretw0/fixpath/internal/config"
	"github.com/aretw0/fixpath/pkg/adapters/memory"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/wizard"
)

// ExampleOpen walks a small in-memory tree down to a video check and answers it.
func ExampleOpen() {
	loader, err := memory.NewFromNodes("demo", "1", &domain.Node{
		ID: "root", Type: domain.NodeTypeBranch, Title: domain.Text("What needs fixing?"),
		Children: []*domain.Node{
			{
				ID: "drain", Type: domain.NodeTypeVideoCheck, Title: domain.Text("Slow drain"),
				VideoURL: "https://videos.example/drain.mp4",
				Outcomes: &domain.Outcomes{
					Yes: &domain.OutcomeSpec{LeafType: domain.LeafEndNoTicket, LeafReason: "self_resolved"},
					No:  &domain.OutcomeSpec{LeafType: domain.LeafStartTicket, LeafReason: domain.LeafReasonStandardWizard},
				},
			},
		},
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	portal, err := fixpath.Open(ctx, config.Default(), fixpath.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}
	defer portal.Close()

	if _, err := portal.Manager.Start(ctx, "demo-session"); err != nil {
		log.Fatal(err)
	}
	snap, err := portal.Manager.Do(ctx, "demo-session", func(ctx context.Context, w *wizard.Wizard) error {
		if _, err := w.Select(ctx, "drain"); err != nil {
			return err
		}
		_, err := w.HandleVideoOutcome(ctx, domain.OutcomeYes)
		return err
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(snap.Path)
	// Output: [drain drain.yes]
}
