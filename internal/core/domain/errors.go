package domain

import "errors"

// Configuration errors. These are caller/programmer mistakes and are returned
// as Go errors instead of being folded into a Result Envelope.
var (
	ErrUnknownDatabase = errors.New("unknown database")
	ErrUnknownExercise = errors.New("unknown exercise")
	ErrReferenceFailed = errors.New("reference query failed")
)

// ErrSchemaUnsupported is returned when a sandbox cannot list its tables.
var ErrSchemaUnsupported = errors.New("schema browsing is not supported for this database")

// ErrQueryTimeout marks an engine error caused by the execution budget.
var ErrQueryTimeout = errors.New("query timed out")
