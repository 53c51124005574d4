package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"course-rag/internal/models"
	"course-rag/internal/rag"

	"github.com/spf13/cobra"
)

var interactive bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question, or start an interactive session with -i",
	Args: func(cmd *cobra.Command, args []string) error {
		if !interactive && len(args) == 0 {
			return fmt.Errorf("a question is required unless running with -i")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if interactive {
			return runInteractive(ctx, a.system, os.Stdin, cmd.OutOrStdout())
		}

		answer, err := a.system.Query(ctx, strings.Join(args, " "), "")
		if err != nil {
			return fmt.Errorf("failed to process query: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatAnswer(answer))
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "run in interactive mode")
}

// runInteractive reads questions line by line within one session
func runInteractive(ctx context.Context, system *rag.System, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	sessionID := system.Sessions().Create()

	fmt.Fprintln(out, "Course Materials Assistant - ask about your courses (type 'exit' to quit)")
	fmt.Fprintln(out, "Commands: /courses lists indexed courses, /clear forgets the conversation")

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/clear":
			system.Sessions().Clear(sessionID)
			fmt.Fprintln(out, "Conversation cleared")
			continue
		case "/courses":
			analytics, err := system.Analytics(ctx)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			fmt.Fprint(out, formatAnalytics(analytics))
			continue
		}

		fmt.Fprint(out, "Searching course materials... ")
		answer, err := system.Query(ctx, input, sessionID)
		if err != nil {
			fmt.Fprintf(out, "\rError: %v\n", err)
			continue
		}
		fmt.Fprintln(out, "\r"+formatAnswer(answer))
	}
	return scanner.Err()
}

func formatAnswer(answer *models.Answer) string {
	var sb strings.Builder
	sb.WriteString(answer.Text)
	sb.WriteString("\n")

	if len(answer.Sources) > 0 {
		sb.WriteString("\nSources:\n")
		for i, source := range answer.Sources {
			fmt.Fprintf(&sb, "  %d. %s", i+1, source.Text)
			if source.Link != "" {
				fmt.Fprintf(&sb, " <%s>", source.Link)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func formatAnalytics(analytics *models.Analytics) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Courses indexed: %d\n", analytics.TotalCourses)
	for _, title := range analytics.CourseTitles {
		sb.WriteString("  " + title + "\n")
	}
	return sb.String()
}
