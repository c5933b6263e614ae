package runtime

import (
	"strings"

	"github.com/aretw0/fixpath/pkg/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// SearchNodes matches titles resolved in the engine's default language.
func (e *Engine) SearchNodes(query string) []domain.SearchResult {
	return e.Search(query, e.lang)
}

// Search performs a case-insensitive substring match of query against the
// resolved title of every node (branch, video_check and leaf).
// Results keep tree pre-order and are truncated to the search limit without
// re-ranking. A blank query matches nothing, and neither does a node
// without a title.
func (e *Engine) Search(query, lang string) []domain.SearchResult {
	// Casers are stateful, so each search gets its own.
	folder := cases.Fold()
	fold := func(s string) string {
		return norm.NFC.String(folder.String(s))
	}

	needle := fold(strings.TrimSpace(query))
	if needle == "" {
		return []domain.SearchResult{}
	}

	results := make([]domain.SearchResult, 0, e.searchLimit)
	e.tree.Walk(func(n *domain.Node, path []string) bool {
		if n.Title.IsZero() {
			return true
		}
		title := n.Title.Resolve(lang)
		if !strings.Contains(fold(title), needle) {
			return true
		}
		results = append(results, domain.SearchResult{
			NodeID:  n.ID,
			Title:   title,
			Type:    n.Type,
			Path:    append([]string{}, path...),
			Matched: true,
		})
		return len(results) < e.searchLimit
	})
	return results
}
