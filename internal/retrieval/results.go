package retrieval

import (
	"math"
	"strconv"
)

// Metadata field names shared by both indexes
const (
	FieldCourseTitle  = "course_title"
	FieldLessonNumber = "lesson_number"
	FieldChunkIndex   = "chunk_index"

	FieldTitle       = "title"
	FieldInstructor  = "instructor"
	FieldCourseLink  = "course_link"
	FieldLessonsJSON = "lessons_json"
	FieldLessonCount = "lesson_count"
)

// Hit is one similarity match returned by an index, most similar first
type Hit struct {
	ID       string
	Document string
	Metadata map[string]any
	Distance float64
}

// SearchResults holds parallel documents, metadata and distances.
// When Error is set all three slices are empty.
type SearchResults struct {
	Documents []string
	Metadata  []map[string]any
	Distances []float64
	Error     string
}

// FromHits wraps index hits preserving their order
func FromHits(hits []Hit) SearchResults {
	res := SearchResults{
		Documents: make([]string, 0, len(hits)),
		Metadata:  make([]map[string]any, 0, len(hits)),
		Distances: make([]float64, 0, len(hits)),
	}
	for _, h := range hits {
		meta := h.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		res.Documents = append(res.Documents, h.Document)
		res.Metadata = append(res.Metadata, meta)
		res.Distances = append(res.Distances, h.Distance)
	}
	return res
}

// Empty returns a result with no hits carrying the given error message
func Empty(errMsg string) SearchResults {
	return SearchResults{
		Documents: []string{},
		Metadata:  []map[string]any{},
		Distances: []float64{},
		Error:     errMsg,
	}
}

// IsEmpty reports no hits and no error. An errored result is not empty.
func (r SearchResults) IsEmpty() bool {
	return len(r.Documents) == 0 && r.Error == ""
}

// Failed reports whether the search produced an error message
func (r SearchResults) Failed() bool {
	return r.Error != ""
}

// Len is the number of hits
func (r SearchResults) Len() int {
	return len(r.Documents)
}

// CourseTitle reads the course title from hit metadata
func CourseTitle(meta map[string]any) (string, bool) {
	v, ok := meta[FieldCourseTitle]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// LessonNumber reads the lesson number from hit metadata.
// Backends hand back ints, floats from JSON, or strings.
func LessonNumber(meta map[string]any) (int, bool) {
	return intValue(meta[FieldLessonNumber])
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return integral(float64(n))
	case float64:
		return integral(n)
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// integral accepts whole floats only; 2.7 is not a lesson number
func integral(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}
