package domain

import (
	"math"
	"time"
)

// ResultSet is what a runner hands back for one successful statement:
// column names in result order and at most the configured number of rows.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Envelope is the normalized outcome of one execution attempt.
//
// On failure Columns and Rows are empty and Error is set. On success Error is
// nil and RowCount == len(Rows).
type Envelope struct {
	Success       bool     `json:"success"`
	Columns       []string `json:"columns"`
	Rows          [][]any  `json:"rows"`
	RowCount      int      `json:"row_count"`
	ExecutionTime float64  `json:"execution_time"`
	Error         *string  `json:"error"`
}

// NewSuccessEnvelope wraps a result set. A nil result set yields an empty,
// successful envelope (statements with no result columns).
func NewSuccessEnvelope(rs *ResultSet, elapsed time.Duration) *Envelope {
	env := &Envelope{
		Success:       true,
		Columns:       []string{},
		Rows:          [][]any{},
		ExecutionTime: Seconds(elapsed),
	}
	if rs != nil {
		if rs.Columns != nil {
			env.Columns = rs.Columns
		}
		if rs.Rows != nil {
			env.Rows = rs.Rows
		}
	}
	env.RowCount = len(env.Rows)
	return env
}

// NewFailureEnvelope builds an unsuccessful envelope carrying msg.
func NewFailureEnvelope(msg string, elapsed time.Duration) *Envelope {
	if msg == "" {
		msg = "query failed"
	}
	return &Envelope{
		Success:       false,
		Columns:       []string{},
		Rows:          [][]any{},
		RowCount:      0,
		ExecutionTime: Seconds(elapsed),
		Error:         &msg,
	}
}

// ErrorMessage returns the failure text, or "" for a successful envelope.
func (e *Envelope) ErrorMessage() string {
	if e == nil || e.Error == nil {
		return ""
	}
	return *e.Error
}

// Seconds converts d to seconds rounded to millisecond precision.
func Seconds(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return math.Round(d.Seconds()*1000) / 1000
}
