package port

import "context"

// TutorRequest is the context handed to the tutor for one question.
type TutorRequest struct {
	Message       string
	ExerciseTitle string
	UserQuery     string
	Error         string
}

// Tutor produces a short hint for a learner.
type Tutor interface {
	Respond(ctx context.Context, req TutorRequest) string
}
