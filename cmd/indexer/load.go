package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"course-rag/internal/models"
)

// courseFile is the ingestion format: a course with its pre-chunked content
type courseFile struct {
	models.Course
	Chunks []fileChunk `json:"chunks"`
}

type fileChunk struct {
	Content      string `json:"content"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	ChunkIndex   *int   `json:"chunk_index,omitempty"`
}

// loadCourseFile reads one course file. Chunks without an explicit index are
// numbered by position.
func loadCourseFile(path string) (*models.Course, []models.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cf courseFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if strings.TrimSpace(cf.Title) == "" {
		return nil, nil, fmt.Errorf("%s: course title is required", path)
	}

	chunks := make([]models.Chunk, 0, len(cf.Chunks))
	for i, c := range cf.Chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		index := i
		if c.ChunkIndex != nil {
			index = *c.ChunkIndex
		}
		chunks = append(chunks, models.Chunk{
			Content:      c.Content,
			CourseTitle:  cf.Title,
			LessonNumber: c.LessonNumber,
			ChunkIndex:   index,
		})
	}

	course := cf.Course
	return &course, chunks, nil
}

// collectFiles expands a path into the .json files to index, sorted
func collectFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// chunkStats summarizes indexed chunks for the final report
type chunkStats struct {
	total       int
	totalLength int
	perCourse   map[string]int
	noLesson    int
}

func newChunkStats() *chunkStats {
	return &chunkStats{perCourse: make(map[string]int)}
}

func (s *chunkStats) add(chunks []models.Chunk) {
	for _, c := range chunks {
		s.total++
		s.totalLength += len(c.Content)
		s.perCourse[c.CourseTitle]++
		if c.LessonNumber == nil {
			s.noLesson++
		}
	}
}

func (s *chunkStats) averageLength() float64 {
	if s.total == 0 {
		return 0
	}
	return float64(s.totalLength) / float64(s.total)
}
