package retrieval

import (
	"context"
	"errors"
)

// ErrCourseNotFound is returned when a course name resolves to nothing
var ErrCourseNotFound = errors.New("course not found")

// Index is a semantic collection answering similarity queries
type Index interface {
	// Query returns at most limit hits for text, most similar first.
	// A nil filter means no restriction.
	Query(ctx context.Context, text string, limit int, where Filter) ([]Hit, error)
}

// Catalog is the course-catalog index. Entries are keyed by course title.
type Catalog interface {
	Index

	// Get returns the entry with the given title, or nil if there is none
	Get(ctx context.Context, title string) (*Hit, error)

	// Titles lists every course title in the catalog
	Titles(ctx context.Context) ([]string, error)
}
