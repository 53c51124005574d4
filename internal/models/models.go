package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Lesson is one numbered lesson of a course
type Lesson struct {
	LessonNumber int    `json:"lesson_number"`
	Title        string `json:"title"`
	LessonLink   string `json:"lesson_link,omitempty"`
}

// Course is the catalog entry for a course. Title is its identity.
type Course struct {
	Title      string   `json:"title"`
	Instructor string   `json:"instructor,omitempty"`
	CourseLink string   `json:"course_link,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Lesson returns the lesson with the given number, if the course has one
func (c *Course) Lesson(number int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.LessonNumber == number {
			return l, true
		}
	}
	return Lesson{}, false
}

// Chunk is the unit of retrieval in the content index
type Chunk struct {
	Content      string `json:"content"`
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
}

// ID is the content-index identifier of the chunk
func (c Chunk) ID() string {
	return c.CourseTitle + "_" + strconv.Itoa(c.ChunkIndex)
}

// Source is a citation shown next to an answer
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// Answer is the response to a user query
type Answer struct {
	Text      string   `json:"answer"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"session_id,omitempty"`
}

// Analytics summarizes the course catalog
type Analytics struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// catalogLesson is the lesson shape stored in the catalog's lessons_json field
type catalogLesson struct {
	LessonNumber int    `json:"lesson_number"`
	LessonTitle  string `json:"lesson_title"`
	LessonLink   string `json:"lesson_link"`
}

// EncodeLessons serializes lessons for the lessons_json catalog field
func EncodeLessons(lessons []Lesson) (string, error) {
	entries := make([]catalogLesson, len(lessons))
	for i, l := range lessons {
		entries[i] = catalogLesson{
			LessonNumber: l.LessonNumber,
			LessonTitle:  l.Title,
			LessonLink:   l.LessonLink,
		}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to encode lessons: %w", err)
	}
	return string(data), nil
}

// DecodeLessons parses a lessons_json catalog field
func DecodeLessons(data string) ([]Lesson, error) {
	if data == "" {
		return nil, nil
	}
	var entries []catalogLesson
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode lessons: %w", err)
	}
	lessons := make([]Lesson, len(entries))
	for i, e := range entries {
		lessons[i] = Lesson{
			LessonNumber: e.LessonNumber,
			Title:        e.LessonTitle,
			LessonLink:   e.LessonLink,
		}
	}
	return lessons, nil
}
