package retrieval

import (
	"fmt"
)

// AndOperator is the conjunction key of the filter language
const AndOperator = "$and"

// Filter is an equality filter on content metadata. A nil Filter means
// unrestricted search; otherwise it is either {field: value} or
// {"$and": [{field: value}, {field: value}]}.
type Filter map[string]any

// Predicate is a single field equality
type Predicate struct {
	Field string
	Value any
}

// BuildFilter composes the content filter from an optional resolved course
// title and an optional lesson number
func BuildFilter(courseTitle string, lessonNumber *int) Filter {
	var preds []Filter
	if courseTitle != "" {
		preds = append(preds, Filter{FieldCourseTitle: courseTitle})
	}
	if lessonNumber != nil {
		preds = append(preds, Filter{FieldLessonNumber: *lessonNumber})
	}

	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return Filter{AndOperator: preds}
	}
}

// Predicates flattens the filter into its equality predicates, in order
func (f Filter) Predicates() ([]Predicate, error) {
	if len(f) == 0 {
		return nil, nil
	}

	if clauses, ok := f[AndOperator]; ok {
		if len(f) != 1 {
			return nil, fmt.Errorf("%s cannot be combined with other keys", AndOperator)
		}
		list, ok := clauses.([]Filter)
		if !ok {
			return nil, fmt.Errorf("%s expects a list of filters, got %T", AndOperator, clauses)
		}
		var preds []Predicate
		for _, clause := range list {
			p, err := clause.single()
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
		return preds, nil
	}

	p, err := f.single()
	if err != nil {
		return nil, err
	}
	return []Predicate{p}, nil
}

func (f Filter) single() (Predicate, error) {
	if len(f) != 1 {
		return Predicate{}, fmt.Errorf("equality filter must have exactly one field, got %d", len(f))
	}
	for field, value := range f {
		if field == AndOperator {
			return Predicate{}, fmt.Errorf("nested %s is not supported", AndOperator)
		}
		return Predicate{Field: field, Value: value}, nil
	}
	return Predicate{}, nil
}
