package testutils

import (
	"testing"

	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/stretchr/testify/require"
)

// Node ids of the sample tree.
const (
	Bathroom      = "bathroom"
	TapLeak       = "bathroom.tap_leak"
	SeatBroken    = "bathroom.seat_broken"
	Clogged       = "bathroom.clogged"
	Heating       = "heating"
	Radiator      = "heating.radiator"
	RadiatorCold  = "heating.radiator.cold"
	RadiatorNoise = "heating.radiator.noise"
	Boiler        = "heating.boiler"
	Kitchen       = "kitchen"
)

// SampleRoot builds a fresh copy of the sample node structure:
//
//	root
//	├── bathroom
//	│   ├── bathroom.tap_leak        leaf start_ticket
//	│   ├── bathroom.seat_broken     leaf end_no_ticket
//	│   └── bathroom.clogged         video_check
//	├── heating
//	│   ├── heating.radiator
//	│   │   ├── heating.radiator.cold   leaf start_ticket
//	│   │   └── heating.radiator.noise  leaf end_no_ticket
//	│   └── heating.boiler           leaf start_ticket
//	└── kitchen                      empty branch
func SampleRoot() *domain.Node {
	return &domain.Node{
		ID: "root", Type: domain.NodeTypeBranch, Title: domain.Localized("What needs fixing?", "Wat moet er gerepareerd worden?"),
		Children: []*domain.Node{
			{
				ID: Bathroom, Type: domain.NodeTypeBranch, Title: domain.Localized("Bathroom", "Badkamer"),
				Children: []*domain.Node{
					{
						ID: TapLeak, Type: domain.NodeTypeLeaf, Title: domain.Localized("Tap is leaking", "Kraan lekt"),
						OutcomeSpec: domain.OutcomeSpec{
							LeafType:       domain.LeafStartTicket,
							LeafReason:     domain.LeafReasonStandardWizard,
							RequiredFields: []string{"description"},
							QuestionGroups: []string{"plumbing"},
						},
					},
					{
						ID: SeatBroken, Type: domain.NodeTypeLeaf, Title: domain.Localized("Toilet seat broken", "Toiletbril kapot"),
						OutcomeSpec: domain.OutcomeSpec{LeafType: domain.LeafEndNoTicket, LeafReason: "tenant_responsibility"},
					},
					{
						ID: Clogged, Type: domain.NodeTypeVideoCheck, Title: domain.Localized("Clogged Toilet", "Verstopt toilet"),
						VideoURL: "https://videos.example/unclog.mp4",
						Outcomes: &domain.Outcomes{
							Yes: &domain.OutcomeSpec{LeafType: domain.LeafEndNoTicket, LeafReason: "self_resolved"},
							No: &domain.OutcomeSpec{
								LeafType:       domain.LeafStartTicket,
								LeafReason:     domain.LeafReasonStandardWizard,
								RequiredFields: []string{"description"},
								Flow:           []string{"describe", "contact", "photos"},
							},
						},
					},
				},
			},
			{
				ID: Heating, Type: domain.NodeTypeBranch, Title: domain.Localized("Heating", "Verwarming"),
				Children: []*domain.Node{
					{
						ID: Radiator, Type: domain.NodeTypeBranch, Title: domain.Text("Radiator"),
						Children: []*domain.Node{
							{
								ID: RadiatorCold, Type: domain.NodeTypeLeaf, Title: domain.Localized("Radiator stays cold", "Radiator blijft koud"),
								OutcomeSpec: domain.OutcomeSpec{LeafType: domain.LeafStartTicket, LeafReason: domain.LeafReasonStandardWizard},
							},
							{
								ID: RadiatorNoise, Type: domain.NodeTypeLeaf, Title: domain.Localized("Radiator makes noise", "Radiator maakt lawaai"),
								OutcomeSpec: domain.OutcomeSpec{LeafType: domain.LeafEndNoTicket, LeafReason: "bleed_yourself"},
							},
						},
					},
					{
						ID: Boiler, Type: domain.NodeTypeLeaf, Title: domain.Localized("Boiler shows an error code", "Ketel geeft een foutcode"),
						OutcomeSpec: domain.OutcomeSpec{LeafType: domain.LeafStartTicket, LeafReason: "urgent"},
					},
				},
			},
			{ID: Kitchen, Type: domain.NodeTypeBranch, Title: domain.Localized("Kitchen", "Keuken")},
		},
	}
}

// SampleTree returns the sample tree published as portal/v1.
func SampleTree(t testing.TB) *domain.DecisionTree {
	t.Helper()
	tree, err := domain.NewTree("portal", "1", SampleRoot())
	require.NoError(t, err, "sample tree must be valid")
	return tree
}

// BrokenVideoTree returns a tree whose only video node lacks its "no" outcome.
func BrokenVideoTree(t testing.TB) *domain.DecisionTree {
	t.Helper()
	root := &domain.Node{
		ID: "root", Type: domain.NodeTypeBranch, Title: domain.Text("Start"),
		Children: []*domain.Node{{
			ID: "broken", Type: domain.NodeTypeVideoCheck, Title: domain.Text("Broken video"),
			VideoURL: "https://videos.example/broken.mp4",
			Outcomes: &domain.Outcomes{
				Yes: &domain.OutcomeSpec{LeafType: domain.LeafEndNoTicket, LeafReason: "self_resolved"},
			},
		}},
	}
	tree, err := domain.NewTree("broken", "1", root)
	require.NoError(t, err)
	return tree
}
