package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotAllowed        = errors.New("only SELECT queries are allowed")
	ErrForbiddenKeyword  = errors.New("keyword is not allowed")
	ErrCommentNotAllowed = errors.New("comments are not allowed in queries")
	ErrMultiStatement    = errors.New("multiple statements are not allowed")
)

// DefaultForbiddenKeywords is the built-in keyword deny list. Order matters:
// the first keyword found is the one reported.
var DefaultForbiddenKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER",
	"CREATE", "TRUNCATE", "GRANT", "REVOKE", "EXEC",
}

// DefaultCommentMarkers are the comment openers/closers rejected anywhere in a query.
var DefaultCommentMarkers = []string{"--", "/*", "*/"}

// QueryPolicy is the allow-list rule set applied to learner SQL.
// It is built once at startup and only read afterwards.
type QueryPolicy struct {
	RequiredPrefix    string
	ForbiddenKeywords []string
	CommentMarkers    []string
	// MaxSemicolons is the number of ';' tolerated (one trailing terminator).
	MaxSemicolons int
}

// DefaultPolicy returns the standard read-only policy.
func DefaultPolicy() QueryPolicy {
	return QueryPolicy{
		RequiredPrefix:    "SELECT",
		ForbiddenKeywords: append([]string(nil), DefaultForbiddenKeywords...),
		CommentMarkers:    append([]string(nil), DefaultCommentMarkers...),
		MaxSemicolons:     1,
	}
}

// WithExtraKeywords returns a copy of p whose deny list also contains extra.
// Entries are uppercased; blanks and duplicates are skipped.
func (p QueryPolicy) WithExtraKeywords(extra ...string) QueryPolicy {
	out := p
	out.ForbiddenKeywords = append([]string(nil), p.ForbiddenKeywords...)
	seen := make(map[string]bool, len(out.ForbiddenKeywords))
	for _, kw := range out.ForbiddenKeywords {
		seen[kw] = true
	}
	for _, kw := range extra {
		kw = strings.ToUpper(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out.ForbiddenKeywords = append(out.ForbiddenKeywords, kw)
	}
	return out
}

// LexicalValidator screens SQL text with substring and marker scanning.
// It deliberately does not parse SQL: a keyword inside an identifier or a
// string literal (e.g. update_date) is rejected too.
type LexicalValidator struct {
	policy QueryPolicy
}

func NewQueryValidator() *LexicalValidator {
	return NewLexicalValidator(DefaultPolicy())
}

func NewLexicalValidator(policy QueryPolicy) *LexicalValidator {
	return &LexicalValidator{policy: policy}
}

// Validate applies the checks in order and returns the first failure.
func (v *LexicalValidator) Validate(sql string) error {
	upper := strings.ToUpper(strings.TrimSpace(sql))

	if !strings.HasPrefix(upper, v.policy.RequiredPrefix) {
		return ErrNotAllowed
	}

	for _, kw := range v.policy.ForbiddenKeywords {
		if strings.Contains(upper, kw) {
			return &ForbiddenKeywordError{Keyword: kw}
		}
	}

	for _, marker := range v.policy.CommentMarkers {
		if strings.Contains(sql, marker) {
			return ErrCommentNotAllowed
		}
	}

	if strings.Count(sql, ";") > v.policy.MaxSemicolons {
		return ErrMultiStatement
	}

	return nil
}

// ForbiddenKeywordError names the deny-listed keyword that was found.
type ForbiddenKeywordError struct {
	Keyword string
}

func (e *ForbiddenKeywordError) Error() string {
	return fmt.Sprintf("keyword '%s' is not allowed", e.Keyword)
}

func (e *ForbiddenKeywordError) Is(target error) bool {
	return target == ErrForbiddenKeyword
}

// IsValidationError reports whether err is a policy rejection.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNotAllowed) ||
		errors.Is(err, ErrForbiddenKeyword) ||
		errors.Is(err, ErrCommentNotAllowed) ||
		errors.Is(err, ErrMultiStatement)
}
