package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"course-rag/internal/embedding"
	"course-rag/internal/models"
	"course-rag/internal/retrieval"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// ChromemConfig holds configuration for the embedded chromem-go store
type ChromemConfig struct {
	// Path is the persistence directory. Empty keeps everything in memory.
	Path string

	// Compress enables gzip compression of persisted documents
	Compress bool

	// Concurrency is the number of parallel embeddings when adding chunks
	Concurrency int
}

// ChromemStore keeps both indexes in chromem-go collections
type ChromemStore struct {
	db      *chromem.DB
	catalog *chromemIndex
	content *chromemIndex
	config  ChromemConfig
	logger  *zap.Logger
}

// NewChromemStore opens (or creates) the catalog and content collections
func NewChromemStore(config ChromemConfig, embedder embedding.Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}

	var db *chromem.DB
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		path, err := expandPath(config.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to expand path: %w", err)
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem DB: %w", err)
		}
		config.Path = path
	}

	return newChromemStore(db, config, embeddingFunc(embedder), logger)
}

// NewChromemStoreWithFunc builds an in-memory store over a chromem embedding
// function directly
func NewChromemStoreWithFunc(embed chromem.EmbeddingFunc, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return newChromemStore(chromem.NewDB(), ChromemConfig{Concurrency: 1}, embed, logger)
}

func newChromemStore(db *chromem.DB, config ChromemConfig, embed chromem.EmbeddingFunc, logger *zap.Logger) (*ChromemStore, error) {
	catalog, err := db.GetOrCreateCollection(CatalogCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", CatalogCollection, err)
	}
	content, err := db.GetOrCreateCollection(ContentCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", ContentCollection, err)
	}

	logger.Info("chromem store initialized",
		zap.String("path", config.Path),
		zap.Int("courses", catalog.Count()),
		zap.Int("chunks", content.Count()),
	)

	return &ChromemStore{
		db:      db,
		catalog: &chromemIndex{coll: catalog, logger: logger},
		content: &chromemIndex{coll: content, logger: logger},
		config:  config,
		logger:  logger,
	}, nil
}

func embeddingFunc(e embedding.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vec, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		return embedding.Float32(vec), nil
	}
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Catalog returns the course-catalog index
func (s *ChromemStore) Catalog() retrieval.Catalog { return s.catalog }

// Content returns the chunk index
func (s *ChromemStore) Content() retrieval.Index { return s.content }

// AddCourse upserts the catalog entry; the title is both id and document text
func (s *ChromemStore) AddCourse(ctx context.Context, course models.Course) error {
	meta, err := catalogMetadata(course)
	if err != nil {
		return err
	}
	doc := chromem.Document{
		ID:       course.Title,
		Content:  course.Title,
		Metadata: toStringMap(meta),
	}
	if err := s.catalog.coll.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to add course %q: %w", course.Title, err)
	}
	s.logger.Debug("added course to catalog", zap.String("title", course.Title))
	return nil
}

// AddChunks stores content chunks keyed by <course_title>_<chunk_index>
func (s *ChromemStore) AddChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:       chunk.ID(),
			Content:  chunk.Content,
			Metadata: toStringMap(chunkMetadata(chunk)),
		}
	}
	if err := s.content.coll.AddDocuments(ctx, docs, s.config.Concurrency); err != nil {
		return fmt.Errorf("failed to add %d chunks: %w", len(chunks), err)
	}
	s.logger.Debug("added chunks to content index", zap.Int("count", len(chunks)))
	return nil
}

// Close is a no-op; chromem persists on write
func (s *ChromemStore) Close() {
	s.logger.Info("chromem store closed")
}

// chromemIndex adapts one chromem collection to the retrieval ports
type chromemIndex struct {
	coll   *chromem.Collection
	logger *zap.Logger
}

// Query runs a similarity search. chromem rejects nResults above the
// collection size, so the limit is capped.
func (c *chromemIndex) Query(ctx context.Context, text string, limit int, where retrieval.Filter) ([]retrieval.Hit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	count := c.coll.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	whereClause, err := chromemWhere(where)
	if err != nil {
		return nil, err
	}

	results, err := c.coll.Query(ctx, text, limit, whereClause, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", c.coll.Name, err)
	}

	hits := make([]retrieval.Hit, len(results))
	for i, r := range results {
		hits[i] = retrieval.Hit{
			ID:       r.ID,
			Document: r.Content,
			Metadata: fromStringMap(r.Metadata),
			Distance: 1 - float64(r.Similarity),
		}
	}
	return hits, nil
}

// Get returns the document with the given id. chromem's only lookup failure
// for an in-memory map is a missing id, so errors read as absence.
func (c *chromemIndex) Get(ctx context.Context, id string) (*retrieval.Hit, error) {
	doc, err := c.coll.GetByID(ctx, id)
	if err != nil {
		return nil, nil
	}
	return &retrieval.Hit{
		ID:       doc.ID,
		Document: doc.Content,
		Metadata: fromStringMap(doc.Metadata),
	}, nil
}

// Titles lists catalog titles. chromem has no listing call, so this runs a
// query as wide as the collection.
func (c *chromemIndex) Titles(ctx context.Context) ([]string, error) {
	count := c.coll.Count()
	if count == 0 {
		return []string{}, nil
	}
	results, err := c.coll.Query(ctx, "course", count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", c.coll.Name, err)
	}

	titles := make([]string, 0, len(results))
	for _, r := range results {
		title := r.Metadata[retrieval.FieldTitle]
		if title == "" {
			title = r.ID
		}
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles, nil
}

// chromemWhere flattens a filter into chromem's AND-ed equality map
func chromemWhere(f retrieval.Filter) (map[string]string, error) {
	preds, err := f.Predicates()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFilter, err)
	}
	if len(preds) == 0 {
		return nil, nil
	}
	where := make(map[string]string, len(preds))
	for _, p := range preds {
		where[p.Field] = formatValue(p.Value)
	}
	return where, nil
}

func toStringMap(metadata map[string]any) map[string]string {
	result := make(map[string]string, len(metadata))
	for k, v := range metadata {
		result[k] = formatValue(v)
	}
	return result
}

func fromStringMap(metadata map[string]string) map[string]any {
	result := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if integerFields[k] {
			if n, err := strconv.Atoi(v); err == nil {
				result[k] = n
				continue
			}
		}
		result[k] = v
	}
	return result
}
