package retrieval

import (
	"context"
	"fmt"

	"course-rag/internal/models"

	"go.uber.org/zap"
)

// DefaultMaxResults is the result cap used when a search gives no limit
const DefaultMaxResults = 5

// Store answers filtered similarity searches over the catalog and content indexes
type Store struct {
	Catalog    Catalog
	Content    Index
	MaxResults int

	resolver *Resolver
	logger   *zap.Logger
}

// NewStore creates a retrieval store. maxResults <= 0 selects DefaultMaxResults.
func NewStore(catalog Catalog, content Index, maxResults int, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Store{
		Catalog:    catalog,
		Content:    content,
		MaxResults: maxResults,
		resolver:   NewResolver(catalog, logger),
		logger:     logger,
	}
}

// ResolveCourseName maps a partial name onto a catalog title
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, bool) {
	return s.resolver.Resolve(ctx, name)
}

// Search runs a similarity query over course content. An empty courseName and
// a nil lessonNumber leave that dimension unfiltered; limit <= 0 uses the
// configured default. Failures come back in SearchResults.Error.
func (s *Store) Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) SearchResults {
	var courseTitle string
	if courseName != "" {
		title, ok := s.resolver.Resolve(ctx, courseName)
		if !ok {
			return Empty(fmt.Sprintf("No course found matching '%s'", courseName))
		}
		courseTitle = title
	}

	filter := BuildFilter(courseTitle, lessonNumber)

	if limit <= 0 {
		limit = s.MaxResults
	}

	hits, err := s.Content.Query(ctx, query, limit, filter)
	if err != nil {
		s.logger.Warn("content search failed",
			zap.String("query", query),
			zap.String("course_title", courseTitle),
			zap.Error(err),
		)
		return Empty(fmt.Sprintf("Search error: %v", err))
	}

	return FromHits(hits)
}

// Course loads the catalog entry for an exact course title
func (s *Store) Course(ctx context.Context, title string) (*models.Course, error) {
	hit, err := s.Catalog.Get(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog entry %q: %w", title, err)
	}
	if hit == nil {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, title)
	}

	lessons, err := models.DecodeLessons(stringValue(hit.Metadata[FieldLessonsJSON]))
	if err != nil {
		return nil, err
	}

	courseTitle := stringValue(hit.Metadata[FieldTitle])
	if courseTitle == "" {
		courseTitle = hit.ID
	}
	return &models.Course{
		Title:      courseTitle,
		Instructor: stringValue(hit.Metadata[FieldInstructor]),
		CourseLink: stringValue(hit.Metadata[FieldCourseLink]),
		Lessons:    lessons,
	}, nil
}

// Outline resolves a partial course name and loads its catalog entry
func (s *Store) Outline(ctx context.Context, courseName string) (*models.Course, error) {
	title, ok := s.resolver.Resolve(ctx, courseName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, courseName)
	}
	return s.Course(ctx, title)
}

// LessonLink looks up a lesson URL. Any failure yields "".
func (s *Store) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) string {
	course, err := s.Course(ctx, courseTitle)
	if err != nil {
		s.logger.Debug("lesson link lookup failed",
			zap.String("course_title", courseTitle),
			zap.Int("lesson_number", lessonNumber),
			zap.Error(err),
		)
		return ""
	}
	lesson, ok := course.Lesson(lessonNumber)
	if !ok {
		return ""
	}
	return lesson.LessonLink
}

// CourseLink looks up a course URL. Any failure yields "".
func (s *Store) CourseLink(ctx context.Context, courseTitle string) string {
	course, err := s.Course(ctx, courseTitle)
	if err != nil {
		s.logger.Debug("course link lookup failed",
			zap.String("course_title", courseTitle),
			zap.Error(err),
		)
		return ""
	}
	return course.CourseLink
}

// Analytics reports the number of catalog courses and their titles
func (s *Store) Analytics(ctx context.Context) (*models.Analytics, error) {
	titles, err := s.Catalog.Titles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list course titles: %w", err)
	}
	if titles == nil {
		titles = []string{}
	}
	return &models.Analytics{
		TotalCourses: len(titles),
		CourseTitles: titles,
	}, nil
}
