package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/fixpath/internal/logging"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Format is the syntax of a tree file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for tree files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported tree file format")

// FormatOf selects the format from a file extension.
// .jsonc files are JSON with comments and trailing commas.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Loader implements ports.TreeLoader over a tree file.
type Loader struct {
	path   string
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader for the tree file at path.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{
		path:   path,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the tree file path.
func (l *Loader) Path() string {
	return l.path
}

// Load reads and decodes the tree file.
func (l *Loader) Load(ctx context.Context) (*domain.DecisionTree, error) {
	format, err := FormatOf(l.path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", l.path, err)
	}

	tree, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", l.path, err)
	}
	l.logger.Debug("tree loaded", "path", l.path, "tree_id", tree.ID, "version", tree.Version, "nodes", tree.Len())
	return tree, nil
}

// Decode parses a tree document in any supported shape: nested
// ({tree_id, version, root}), flat ({tree_id, version, root_node_id, nodes})
// or the legacy flat-key shape ({id, version, start, nodes}).
func Decode(data []byte, format Format) (*domain.DecisionTree, error) {
	doc, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(doc, &probe); err != nil {
		return nil, fmt.Errorf("tree document must be an object: %w", err)
	}

	switch {
	case probe["root"] != nil:
		var tree domain.DecisionTree
		if err := json.Unmarshal(doc, &tree); err != nil {
			return nil, err
		}
		return &tree, nil
	case probe["root_node_id"] != nil:
		return decodeFlat(doc)
	case probe["start"] != nil:
		return decodeLegacy(doc)
	}
	return nil, &domain.TreeIntegrityError{Reason: "document has neither root, root_node_id nor start"}
}

// toJSON converts the document to plain JSON. YAML goes through a generic
// value, with a numeric version coerced to a string.
func toJSON(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return jsonc.ToJSON(data), nil
	case FormatYAML:
		var generic map[string]any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		if v, ok := generic["version"]; ok {
			if _, isString := v.(string); !isString && v != nil {
				generic["version"] = fmt.Sprint(v)
			}
		}
		out, err := json.Marshal(generic)
		if err != nil {
			return nil, fmt.Errorf("convert yaml: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}
