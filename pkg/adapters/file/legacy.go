package file

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// legacyDocument is the flat-key export of the first portal version.
// Node kinds are menu, video and end; titles are split per language.
type legacyDocument struct {
	ID      string                `mapstructure:"id"`
	Version string                `mapstructure:"version"`
	Start   string                `mapstructure:"start"`
	Nodes   map[string]legacyNode `mapstructure:"nodes"`
}

type legacyNode struct {
	Kind     string         `mapstructure:"kind"`
	TitleEN  string         `mapstructure:"title_en"`
	TitleNL  string         `mapstructure:"title_nl"`
	Next     []string       `mapstructure:"next"`
	Video    string         `mapstructure:"video"`
	Yes      *legacyOutcome `mapstructure:"yes"`
	No       *legacyOutcome `mapstructure:"no"`
	Ticket   bool           `mapstructure:"ticket"`
	Reason   string         `mapstructure:"reason"`
	Required []string       `mapstructure:"required"`
}

type legacyOutcome struct {
	Ticket   bool     `mapstructure:"ticket"`
	Reason   string   `mapstructure:"reason"`
	Required []string `mapstructure:"required"`
}

func (o *legacyOutcome) spec() *domain.OutcomeSpec {
	if o == nil {
		return nil
	}
	return &domain.OutcomeSpec{
		LeafType:       legacyLeafType(o.Ticket),
		LeafReason:     o.Reason,
		RequiredFields: o.Required,
	}
}

func legacyLeafType(ticket bool) domain.LeafType {
	if ticket {
		return domain.LeafStartTicket
	}
	return domain.LeafEndNoTicket
}

var legacyKinds = map[string]domain.NodeType{
	"menu":  domain.NodeTypeBranch,
	"video": domain.NodeTypeVideoCheck,
	"end":   domain.NodeTypeLeaf,
}

func decodeLegacy(data []byte) (*domain.DecisionTree, error) {
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}

	var doc legacyDocument
	cfg := &mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(generic); err != nil {
		return nil, fmt.Errorf("decode legacy tree: %w", err)
	}

	l := newLinker(len(doc.Nodes))
	for id, ln := range doc.Nodes {
		typ, ok := legacyKinds[ln.Kind]
		if !ok {
			return nil, &domain.TreeIntegrityError{NodeID: id, Reason: fmt.Sprintf("kind %q", ln.Kind), Err: domain.ErrUnknownNodeType}
		}
		n := &domain.Node{
			ID:    id,
			Type:  typ,
			Title: domain.Localized(ln.TitleEN, ln.TitleNL),
		}
		switch typ {
		case domain.NodeTypeVideoCheck:
			n.VideoURL = ln.Video
			n.Outcomes = &domain.Outcomes{Yes: ln.Yes.spec(), No: ln.No.spec()}
		case domain.NodeTypeLeaf:
			n.OutcomeSpec = domain.OutcomeSpec{
				LeafType:       legacyLeafType(ln.Ticket),
				LeafReason:     ln.Reason,
				RequiredFields: ln.Required,
			}
		}
		l.add(id, n, ln.Next)
	}

	root, err := l.link(doc.Start)
	if err != nil {
		return nil, err
	}
	return domain.NewTree(doc.ID, doc.Version, root)
}
