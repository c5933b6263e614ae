package ports

import (
	"context"

	"github.com/aretw0/fixpath/pkg/domain"
)

// TreeLoader defines how the engine retrieves the decision tree.
// This allows the source (file, API, legacy transform, memory) to be decoupled.
// Alternate wire formats are normalized inside the loader, once per load.
type TreeLoader interface {
	Load(ctx context.Context) (*domain.DecisionTree, error)
}
