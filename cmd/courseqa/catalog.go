package main

import (
	"errors"
	"fmt"
	"strings"

	"course-rag/internal/models"
	"course-rag/internal/retrieval"

	"github.com/spf13/cobra"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List the indexed courses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		analytics, err := a.system.Analytics(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), formatAnalytics(analytics))
		return nil
	},
}

var outlineCmd = &cobra.Command{
	Use:   "outline <course name>",
	Short: "Show a course's lessons; partial names are matched",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		name := strings.Join(args, " ")
		course, err := a.store.Outline(cmd.Context(), name)
		if errors.Is(err, retrieval.ErrCourseNotFound) {
			return fmt.Errorf("no course found matching '%s'", name)
		}
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), formatCourse(course))
		return nil
	},
}

func formatCourse(course *models.Course) string {
	var sb strings.Builder
	sb.WriteString(course.Title + "\n")
	if course.Instructor != "" {
		fmt.Fprintf(&sb, "Instructor: %s\n", course.Instructor)
	}
	if course.CourseLink != "" {
		fmt.Fprintf(&sb, "Link: %s\n", course.CourseLink)
	}
	for _, l := range course.Lessons {
		fmt.Fprintf(&sb, "  Lesson %d: %s\n", l.LessonNumber, l.Title)
	}
	return sb.String()
}
