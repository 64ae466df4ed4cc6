package port

// QueryValidator screens SQL text before anything reaches a sandbox.
type QueryValidator interface {
	Validate(sql string) error
}
