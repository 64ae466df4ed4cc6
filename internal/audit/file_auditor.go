// Package audit persists one NDJSON record per execution attempt.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/guillermoBallester/sqlgym/internal/core/port"
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// record is the NDJSON-serializable form of an audit entry.
type record struct {
	Timestamp    string  `json:"ts"`
	AttemptID    string  `json:"attempt_id"`
	Tool         string  `json:"tool"`
	Database     string  `json:"database"`
	SQL          string  `json:"sql"`
	Fingerprint  string  `json:"fingerprint,omitempty"`
	RowsReturned int     `json:"rows_returned"`
	DurationMS   int64   `json:"duration_ms"`
	Error        *string `json:"error"`
}

// FileAuditor appends attempt records to a file, one JSON object per line.
type FileAuditor struct {
	mu  sync.Mutex
	w   io.WriteCloser
	enc *json.Encoder
	now func() time.Time
}

var _ port.QueryAuditor = (*FileAuditor)(nil)

// NewFileAuditor opens (or creates) the file at path for append-only writing.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &FileAuditor{
		w:   f,
		enc: json.NewEncoder(f),
		now: time.Now,
	}, nil
}

func (a *FileAuditor) Record(_ context.Context, entry port.AuditEntry) {
	rec := record{
		Timestamp:    a.now().UTC().Format(time.RFC3339Nano),
		AttemptID:    entry.AttemptID,
		Tool:         entry.Tool,
		Database:     entry.Database,
		SQL:          entry.SQL,
		Fingerprint:  Fingerprint(entry.SQL),
		RowsReturned: entry.RowsReturned,
		DurationMS:   entry.DurationMS,
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		rec.Error = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_ = a.enc.Encode(rec) // audit I/O never fails the attempt
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.w.Close()
}

// Fingerprint groups statements that differ only in literal values. It
// returns "" when the statement does not parse as PostgreSQL.
func Fingerprint(sql string) string {
	fp, err := pg_query.Fingerprint(sql)
	if err != nil {
		return ""
	}
	return fp
}
