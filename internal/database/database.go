package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"course-rag/internal/models"
	"course-rag/internal/retrieval"
)

// Collection names shared by every backend
const (
	CatalogCollection = "course_catalog"
	ContentCollection = "course_content"
)

// ErrUnsupportedFilter marks a filter the backend cannot translate
var ErrUnsupportedFilter = errors.New("unsupported filter")

// Backend is a vector store holding the catalog and content indexes.
// Retrieval reads through Catalog and Content; the indexer writes through
// AddCourse and AddChunks.
type Backend interface {
	Catalog() retrieval.Catalog
	Content() retrieval.Index

	// AddCourse upserts the catalog entry keyed by course title
	AddCourse(ctx context.Context, course models.Course) error
	// AddChunks stores content chunks. An empty slice is a no-op.
	AddChunks(ctx context.Context, chunks []models.Chunk) error

	Close()
}

// catalogMetadata is the persisted catalog entry shape
func catalogMetadata(course models.Course) (map[string]any, error) {
	lessonsJSON, err := models.EncodeLessons(course.Lessons)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		retrieval.FieldTitle:       course.Title,
		retrieval.FieldInstructor:  course.Instructor,
		retrieval.FieldCourseLink:  course.CourseLink,
		retrieval.FieldLessonsJSON: lessonsJSON,
		retrieval.FieldLessonCount: len(course.Lessons),
	}, nil
}

// chunkMetadata is the persisted content metadata; lesson_number is omitted
// when the chunk has none
func chunkMetadata(chunk models.Chunk) map[string]any {
	meta := map[string]any{
		retrieval.FieldCourseTitle: chunk.CourseTitle,
		retrieval.FieldChunkIndex:  chunk.ChunkIndex,
	}
	if chunk.LessonNumber != nil {
		meta[retrieval.FieldLessonNumber] = *chunk.LessonNumber
	}
	return meta
}

// integerFields are decoded back to int when a backend stores metadata as text
var integerFields = map[string]bool{
	retrieval.FieldLessonNumber: true,
	retrieval.FieldChunkIndex:   true,
	retrieval.FieldLessonCount:  true,
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

var (
	_ Backend = (*ChromemStore)(nil)
	_ Backend = (*DB)(nil)
)
