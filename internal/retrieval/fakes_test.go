package retrieval

import (
	"context"
)

type queryCall struct {
	Text  string
	Limit int
	Where Filter
}

// fakeIndex records queries and answers from canned hits
type fakeIndex struct {
	hits    []Hit
	err     error
	entries map[string]*Hit
	calls   []queryCall
}

func (f *fakeIndex) Query(ctx context.Context, text string, limit int, where Filter) ([]Hit, error) {
	f.calls = append(f.calls, queryCall{Text: text, Limit: limit, Where: where})
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

func (f *fakeIndex) Get(ctx context.Context, title string) (*Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[title], nil
}

func (f *fakeIndex) Titles(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var titles []string
	for title := range f.entries {
		titles = append(titles, title)
	}
	return titles, nil
}

func catalogHit(title string) Hit {
	return Hit{
		ID:       title,
		Document: title,
		Metadata: map[string]any{FieldTitle: title},
	}
}
