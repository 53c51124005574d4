package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"course-rag/internal/llm"
	"course-rag/internal/models"
	"course-rag/internal/retrieval"
)

// OutlineToolName is the name the model uses to call CourseOutlineTool
const OutlineToolName = "get_course_outline"

// Outliner loads the catalog entry behind a partial course name
type Outliner interface {
	Outline(ctx context.Context, courseName string) (*models.Course, error)
}

// CourseOutlineTool returns a course's title, link and lesson list
type CourseOutlineTool struct {
	store Outliner
}

// NewCourseOutlineTool creates the outline tool over a store
func NewCourseOutlineTool(store Outliner) *CourseOutlineTool {
	return &CourseOutlineTool{store: store}
}

// Spec describes the tool to the model
func (t *CourseOutlineTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        OutlineToolName,
		Description: "Get the outline of a course: title, link, instructor and the complete numbered lesson list",
		InputSchema: llm.Schema{
			Type: "object",
			Properties: map[string]llm.Property{
				"course_name": {
					Type:        "string",
					Description: "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
			},
			Required: []string{"course_name"},
		},
	}
}

// Execute resolves the course and renders its outline. Lookup failures are
// reported as text.
func (t *CourseOutlineTool) Execute(ctx context.Context, args Arguments) (Result, error) {
	courseName, err := args.String("course_name")
	if err != nil {
		return Result{}, err
	}

	course, err := t.store.Outline(ctx, courseName)
	if errors.Is(err, retrieval.ErrCourseNotFound) {
		return Result{Text: fmt.Sprintf("No course found matching '%s'", courseName)}, nil
	}
	if err != nil {
		return Result{Text: fmt.Sprintf("Error retrieving course outline: %v", err)}, nil
	}

	return Result{
		Text: formatOutline(course),
		Sources: []models.Source{{
			Text: course.Title,
			Link: course.CourseLink,
		}},
	}, nil
}

func formatOutline(course *models.Course) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Course: %s\n", course.Title)
	if course.CourseLink != "" {
		fmt.Fprintf(&sb, "Course Link: %s\n", course.CourseLink)
	}
	if course.Instructor != "" {
		fmt.Fprintf(&sb, "Instructor: %s\n", course.Instructor)
	}

	if len(course.Lessons) == 0 {
		sb.WriteString("\nNo lessons available.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\nLessons (%d total):\n", len(course.Lessons))
	for _, l := range course.Lessons {
		fmt.Fprintf(&sb, "Lesson %d: %s", l.LessonNumber, l.Title)
		if l.LessonLink != "" {
			fmt.Fprintf(&sb, " (%s)", l.LessonLink)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
