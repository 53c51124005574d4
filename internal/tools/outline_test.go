package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"course-rag/internal/models"
	"course-rag/internal/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutlineTool(t *testing.T) {
	store := &fakeStore{course: &models.Course{
		Title:      "MCP: Build Rich-Context AI Apps with Anthropic",
		Instructor: "Elie Schoppik",
		CourseLink: "https://example.com/mcp",
		Lessons: []models.Lesson{
			{LessonNumber: 0, Title: "Introduction", LessonLink: "https://example.com/mcp/0"},
			{LessonNumber: 1, Title: "Why MCP"},
		},
	}}

	result, err := NewCourseOutlineTool(store).Execute(context.Background(), Arguments{"course_name": "MCP"})
	require.NoError(t, err)

	assert.Equal(t, "Course: MCP: Build Rich-Context AI Apps with Anthropic\n"+
		"Course Link: https://example.com/mcp\n"+
		"Instructor: Elie Schoppik\n"+
		"\n"+
		"Lessons (2 total):\n"+
		"Lesson 0: Introduction (https://example.com/mcp/0)\n"+
		"Lesson 1: Why MCP", result.Text)
	assert.Equal(t, []models.Source{{
		Text: "MCP: Build Rich-Context AI Apps with Anthropic",
		Link: "https://example.com/mcp",
	}}, result.Sources)
}

func TestOutlineToolNoLessons(t *testing.T) {
	store := &fakeStore{course: &models.Course{Title: "Empty Course"}}

	result, err := NewCourseOutlineTool(store).Execute(context.Background(), Arguments{"course_name": "Empty"})
	require.NoError(t, err)
	assert.Equal(t, "Course: Empty Course\n\nNo lessons available.", result.Text)
}

func TestOutlineToolNotFound(t *testing.T) {
	store := &fakeStore{outlineErr: fmt.Errorf("%w: Nope", retrieval.ErrCourseNotFound)}

	result, err := NewCourseOutlineTool(store).Execute(context.Background(), Arguments{"course_name": "Nope"})
	require.NoError(t, err)
	assert.Equal(t, "No course found matching 'Nope'", result.Text)
	assert.Empty(t, result.Sources)
}

func TestOutlineToolLookupError(t *testing.T) {
	store := &fakeStore{outlineErr: errors.New("connection refused")}

	result, err := NewCourseOutlineTool(store).Execute(context.Background(), Arguments{"course_name": "MCP"})
	require.NoError(t, err)
	assert.Equal(t, "Error retrieving course outline: connection refused", result.Text)
}

func TestOutlineToolRequiresCourseName(t *testing.T) {
	_, err := NewCourseOutlineTool(&fakeStore{}).Execute(context.Background(), Arguments{})
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestOutlineToolSpec(t *testing.T) {
	spec := NewCourseOutlineTool(&fakeStore{}).Spec()
	assert.Equal(t, "get_course_outline", spec.Name)
	assert.Equal(t, []string{"course_name"}, spec.InputSchema.Required)
}
