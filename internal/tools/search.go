package tools

import (
	"context"
	"fmt"
	"strings"

	"course-rag/internal/llm"
	"course-rag/internal/models"
	"course-rag/internal/retrieval"
)

// SearchToolName is the name the model uses to call CourseSearchTool
const SearchToolName = "search_course_content"

// Searcher is the part of the retrieval store the search tool depends on
type Searcher interface {
	Search(ctx context.Context, query, courseName string, lessonNumber *int, limit int) retrieval.SearchResults
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) string
	CourseLink(ctx context.Context, courseTitle string) string
}

// CourseSearchTool searches course content with optional course and lesson filters
type CourseSearchTool struct {
	store Searcher
}

// NewCourseSearchTool creates the search tool over a store
func NewCourseSearchTool(store Searcher) *CourseSearchTool {
	return &CourseSearchTool{store: store}
}

// Spec describes the tool to the model
func (t *CourseSearchTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        SearchToolName,
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: llm.Schema{
			Type: "object",
			Properties: map[string]llm.Property{
				"query": {
					Type:        "string",
					Description: "What to search for in the course content",
				},
				"course_name": {
					Type:        "string",
					Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": {
					Type:        "integer",
					Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			Required: []string{"query"},
		},
	}
}

// Execute runs the search and formats the hits for the model
func (t *CourseSearchTool) Execute(ctx context.Context, args Arguments) (Result, error) {
	query, err := args.String("query")
	if err != nil {
		return Result{}, err
	}
	courseName, err := args.OptionalString("course_name")
	if err != nil {
		return Result{}, err
	}
	lessonNumber, err := args.OptionalInt("lesson_number")
	if err != nil {
		return Result{}, err
	}

	results := t.store.Search(ctx, query, courseName, lessonNumber, 0)

	if results.Failed() {
		return Result{Text: results.Error}, nil
	}
	if results.IsEmpty() {
		return Result{Text: noContentMessage(courseName, lessonNumber)}, nil
	}

	return t.format(ctx, results), nil
}

func noContentMessage(courseName string, lessonNumber *int) string {
	var sb strings.Builder
	sb.WriteString("No relevant content found")
	if courseName != "" {
		fmt.Fprintf(&sb, " in course '%s'", courseName)
	}
	if lessonNumber != nil {
		fmt.Fprintf(&sb, " in lesson %d", *lessonNumber)
	}
	sb.WriteString(".")
	return sb.String()
}

func (t *CourseSearchTool) format(ctx context.Context, results retrieval.SearchResults) Result {
	parts := make([]string, 0, results.Len())
	sources := make([]models.Source, 0, results.Len())

	for i, doc := range results.Documents {
		meta := results.Metadata[i]
		courseTitle, hasTitle := retrieval.CourseTitle(meta)
		if !hasTitle {
			courseTitle = "unknown"
		}
		lesson, hasLesson := retrieval.LessonNumber(meta)

		label := courseTitle
		if hasLesson {
			label = fmt.Sprintf("%s - Lesson %d", courseTitle, lesson)
		}
		parts = append(parts, fmt.Sprintf("[%s]\n%s", label, doc))

		source := models.Source{Text: label}
		if hasTitle {
			if hasLesson {
				source.Link = t.store.LessonLink(ctx, courseTitle, lesson)
			} else {
				source.Link = t.store.CourseLink(ctx, courseTitle)
			}
		}
		sources = append(sources, source)
	}

	return Result{
		Text:    strings.Join(parts, "\n\n"),
		Sources: sources,
	}
}
