package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"course-rag/internal/embedding"
	"course-rag/internal/models"
	"course-rag/internal/retrieval"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB represents the database connection
type DB struct {
	Pool       *pgxpool.Pool
	Embedder   embedding.Embedder
	Dimensions int

	// MaxConcurrent bounds parallel embedding requests when adding chunks
	MaxConcurrent int

	logger *zap.Logger
}

// NewDB creates a new database connection
func NewDB(ctx context.Context, connStr string, embedder embedding.Embedder, dimensions int, logger *zap.Logger) (*DB, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		Pool:          pool,
		Embedder:      embedder,
		Dimensions:    dimensions,
		MaxConcurrent: 3,
		logger:        logger,
	}, nil
}

// Initialize sets up the database tables and indices
func (db *DB) Initialize(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err := db.Pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			title TEXT PRIMARY KEY,
			instructor TEXT,
			course_link TEXT,
			lessons_json TEXT NOT NULL DEFAULT '[]',
			lesson_count INTEGER NOT NULL DEFAULT 0,
			embedding vector(%d) NOT NULL
		)
	`, CatalogCollection, db.Dimensions))
	if err != nil {
		return fmt.Errorf("failed to create %s table: %w", CatalogCollection, err)
	}

	_, err = db.Pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			course_title TEXT NOT NULL,
			lesson_number INTEGER,
			chunk_index INTEGER NOT NULL,
			embedding vector(%d) NOT NULL
		)
	`, ContentCollection, db.Dimensions))
	if err != nil {
		return fmt.Errorf("failed to create %s table: %w", ContentCollection, err)
	}

	_, err = db.Pool.Exec(ctx, fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %[1]s_embedding_idx ON %[1]s
		USING hnsw (embedding vector_cosine_ops);
		CREATE INDEX IF NOT EXISTS %[1]s_course_lesson_idx ON %[1]s (course_title, lesson_number);
	`, ContentCollection))
	if err != nil {
		return fmt.Errorf("failed to create content indices: %w", err)
	}

	return nil
}

// Catalog returns the course-catalog index
func (db *DB) Catalog() retrieval.Catalog { return &pgCatalog{db: db} }

// Content returns the chunk index
func (db *DB) Content() retrieval.Index { return &pgContent{db: db} }

// AddCourse upserts the catalog row for a course
func (db *DB) AddCourse(ctx context.Context, course models.Course) error {
	lessonsJSON, err := models.EncodeLessons(course.Lessons)
	if err != nil {
		return err
	}
	vec, err := db.Embedder.EmbedText(ctx, course.Title)
	if err != nil {
		return fmt.Errorf("failed to embed course title: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO course_catalog (title, instructor, course_link, lessons_json, lesson_count, embedding)
		VALUES ($1, $2, $3, $4, $5, $6::vector)
		ON CONFLICT (title) DO UPDATE SET
			instructor = EXCLUDED.instructor,
			course_link = EXCLUDED.course_link,
			lessons_json = EXCLUDED.lessons_json,
			lesson_count = EXCLUDED.lesson_count,
			embedding = EXCLUDED.embedding
	`,
		course.Title,
		nullableText(course.Instructor),
		nullableText(course.CourseLink),
		lessonsJSON,
		len(course.Lessons),
		vectorLiteral(vec))
	if err != nil {
		return fmt.Errorf("failed to store course %q: %w", course.Title, err)
	}
	return nil
}

// AddChunks embeds and stores content chunks in one batch
func (db *DB) AddChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := embedding.EmbedAll(ctx, db.Embedder, texts, db.MaxConcurrent)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		var lesson pgtype.Int4
		if chunk.LessonNumber != nil {
			lesson = pgtype.Int4{Int32: int32(*chunk.LessonNumber), Valid: true}
		}
		batch.Queue(`
			INSERT INTO course_content (id, content, course_title, lesson_number, chunk_index, embedding)
			VALUES ($1, $2, $3, $4, $5, $6::vector)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				lesson_number = EXCLUDED.lesson_number,
				embedding = EXCLUDED.embedding
		`, chunk.ID(), chunk.Content, chunk.CourseTitle, lesson, chunk.ChunkIndex, vectorLiteral(vectors[i]))
	}

	if err := db.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to store %d chunks: %w", len(chunks), err)
	}
	db.logger.Debug("stored content chunks", zap.Int("count", len(chunks)))
	return nil
}

// Close closes the database connection
func (db *DB) Close() {
	db.Pool.Close()
}

type pgCatalog struct {
	db *DB
}

const catalogColumns = `title, instructor, course_link, lessons_json, lesson_count`

func (c *pgCatalog) Query(ctx context.Context, text string, limit int, where retrieval.Filter) ([]retrieval.Hit, error) {
	if len(where) != 0 {
		return nil, fmt.Errorf("%w: catalog queries take no filter", ErrUnsupportedFilter)
	}
	vec, err := c.db.Embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := c.db.Pool.Query(ctx, `
		SELECT `+catalogColumns+`, embedding <=> $1::vector AS distance
		FROM course_catalog
		ORDER BY distance
		LIMIT $2
	`, vectorLiteral(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	return scanCatalogRows(rows, true)
}

func (c *pgCatalog) Get(ctx context.Context, title string) (*retrieval.Hit, error) {
	rows, err := c.db.Pool.Query(ctx, `
		SELECT `+catalogColumns+`
		FROM course_catalog
		WHERE title = $1
	`, title)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog entry: %w", err)
	}
	hits, err := scanCatalogRows(rows, false)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	return &hits[0], nil
}

func (c *pgCatalog) Titles(ctx context.Context) ([]string, error) {
	rows, err := c.db.Pool.Query(ctx, `SELECT title FROM course_catalog ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to query course titles: %w", err)
	}
	titles, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan course titles: %w", err)
	}
	return titles, nil
}

func scanCatalogRows(rows pgx.Rows, withDistance bool) ([]retrieval.Hit, error) {
	defer rows.Close()

	var hits []retrieval.Hit
	for rows.Next() {
		var (
			title, lessonsJSON      string
			instructor, courseLink pgtype.Text
			lessonCount            int
			distance               float64
		)
		dest := []any{&title, &instructor, &courseLink, &lessonsJSON, &lessonCount}
		if withDistance {
			dest = append(dest, &distance)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		hits = append(hits, retrieval.Hit{
			ID:       title,
			Document: title,
			Metadata: map[string]any{
				retrieval.FieldTitle:       title,
				retrieval.FieldInstructor:  instructor.String,
				retrieval.FieldCourseLink:  courseLink.String,
				retrieval.FieldLessonsJSON: lessonsJSON,
				retrieval.FieldLessonCount: lessonCount,
			},
			Distance: distance,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return hits, nil
}

type pgContent struct {
	db *DB
}

func (c *pgContent) Query(ctx context.Context, text string, limit int, where retrieval.Filter) ([]retrieval.Hit, error) {
	// $1 is the query vector, $2 the limit
	clause, args, err := whereSQL(where, 3)
	if err != nil {
		return nil, err
	}

	vec, err := c.db.Embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	query := `
		SELECT id, content, course_title, lesson_number, chunk_index, embedding <=> $1::vector AS distance
		FROM course_content` + clause + `
		ORDER BY distance
		LIMIT $2`

	rows, err := c.db.Pool.Query(ctx, query, append([]any{vectorLiteral(vec), limit}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar chunks: %w", err)
	}
	defer rows.Close()

	var hits []retrieval.Hit
	for rows.Next() {
		var (
			id, content, courseTitle string
			lesson                   pgtype.Int4
			chunkIndex               int
			distance                 float64
		)
		if err := rows.Scan(&id, &content, &courseTitle, &lesson, &chunkIndex, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		meta := map[string]any{
			retrieval.FieldCourseTitle: courseTitle,
			retrieval.FieldChunkIndex:  chunkIndex,
		}
		if lesson.Valid {
			meta[retrieval.FieldLessonNumber] = int(lesson.Int32)
		}
		hits = append(hits, retrieval.Hit{ID: id, Document: content, Metadata: meta, Distance: distance})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return hits, nil
}

// contentColumns whitelists the metadata fields a content filter may name
var contentColumns = map[string]string{
	retrieval.FieldCourseTitle:  "course_title",
	retrieval.FieldLessonNumber: "lesson_number",
	retrieval.FieldChunkIndex:   "chunk_index",
}

// whereSQL translates a filter into a WHERE clause whose placeholders start
// at firstArg
func whereSQL(f retrieval.Filter, firstArg int) (string, []any, error) {
	preds, err := f.Predicates()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUnsupportedFilter, err)
	}
	if len(preds) == 0 {
		return "", nil, nil
	}

	conds := make([]string, 0, len(preds))
	args := make([]any, 0, len(preds))
	for i, p := range preds {
		column, ok := contentColumns[p.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown field %q", ErrUnsupportedFilter, p.Field)
		}
		conds = append(conds, column+" = $"+strconv.Itoa(firstArg+i))
		args = append(args, p.Value)
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND "), args, nil
}

// vectorLiteral renders a vector in pgvector's text input format
func vectorLiteral(v []float64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(f, 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
