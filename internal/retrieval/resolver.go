package retrieval

import (
	"context"

	"go.uber.org/zap"
)

// Resolver maps a partial course name onto a canonical catalog title
type Resolver struct {
	catalog Index
	logger  *zap.Logger
}

// NewResolver creates a resolver over the catalog index
func NewResolver(catalog Index, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{catalog: catalog, logger: logger}
}

// Resolve returns the title of the best catalog match. Query errors are
// logged and reported as not found.
func (r *Resolver) Resolve(ctx context.Context, partialName string) (string, bool) {
	hits, err := r.catalog.Query(ctx, partialName, 1, nil)
	if err != nil {
		r.logger.Warn("error resolving course name",
			zap.String("course_name", partialName),
			zap.Error(err),
		)
		return "", false
	}
	if len(hits) == 0 {
		return "", false
	}

	title := stringValue(hits[0].Metadata[FieldTitle])
	if title == "" {
		return "", false
	}
	return title, true
}
