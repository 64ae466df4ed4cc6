package catalog

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/guillermoBallester/sqlgym/internal/core/domain"
)

// ExerciseFilter narrows an exercise listing. Empty fields match everything.
type ExerciseFilter struct {
	Database   string
	Difficulty string
}

// ListExercises returns the matching exercises ordered by (order, id).
func (c *Catalog) ListExercises(f ExerciseFilter) []ExerciseSummary {
	out := make([]ExerciseSummary, 0, len(c.Exercises))
	for _, ex := range c.Exercises {
		if f.Database != "" && ex.Database != f.Database {
			continue
		}
		if f.Difficulty != "" && ex.Difficulty != f.Difficulty {
			continue
		}
		out = append(out, ex.Summary())
	}
	slices.SortFunc(out, func(a, b ExerciseSummary) int {
		if n := cmp.Compare(a.Order, b.Order); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Exercise looks an exercise up by id.
func (c *Catalog) Exercise(id string) (*Exercise, error) {
	for i := range c.Exercises {
		if c.Exercises[i].ID == id {
			return &c.Exercises[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownExercise, id)
}
