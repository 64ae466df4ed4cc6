// Package tutor provides the AI tutor responder used by the ask_tutor tool.
package tutor

import (
	"context"
	"fmt"

	"github.com/guillermoBallester/sqlgym/internal/core/port"
)

// Mock returns short canned replies without calling a model.
type Mock struct{}

var _ port.Tutor = Mock{}

func (Mock) Respond(_ context.Context, req port.TutorRequest) string {
	title := req.ExerciseTitle
	if title == "" {
		title = "the exercise"
	}
	switch {
	case req.Error != "":
		return fmt.Sprintf("I see an error: %s. Check your SELECT columns and WHERE clause for typos. (mock)", req.Error)
	case req.UserQuery != "":
		return fmt.Sprintf("Your query looks reasonable for %s. Consider ordering results or selecting explicit columns. (mock)", title)
	default:
		return fmt.Sprintf("Try selecting the relevant columns from the table for %s. (mock)", title)
	}
}
