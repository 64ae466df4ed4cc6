package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const (
	MsgExecutionFailed = "Query execution failed"
	MsgColumnMismatch  = "Column names do not match"
	MsgResultMismatch  = "Query results do not match expected output"
	MsgCorrect         = "Correct! Well done!"
)

// VerdictKind classifies a comparison outcome.
type VerdictKind string

const (
	VerdictCorrect          VerdictKind = "correct"
	VerdictExecutionFailed  VerdictKind = "execution_failed"
	VerdictColumnMismatch   VerdictKind = "column_mismatch"
	VerdictRowCountMismatch VerdictKind = "row_count_mismatch"
	VerdictValueMismatch    VerdictKind = "value_mismatch"
)

// Diff carries structured detail for a column mismatch.
type Diff struct {
	MissingColumns []string `json:"missing_columns"`
	ExtraColumns   []string `json:"extra_columns"`
}

// Verdict is the outcome of comparing a candidate envelope with an expected one.
type Verdict struct {
	Correct bool        `json:"correct"`
	Kind    VerdictKind `json:"kind"`
	Message string      `json:"message"`
	Diff    *Diff       `json:"diff"`
}

// Comparator decides structural equivalence of two result envelopes,
// ignoring row order and column order.
type Comparator struct {
	// FoldColumnCase compares column names case-insensitively.
	FoldColumnCase bool
}

// Compare uses the default, case-sensitive comparator.
func Compare(candidate, expected *Envelope) Verdict {
	return Comparator{}.Compare(candidate, expected)
}

// Compare runs the checks in order; the first mismatch wins. Row count is
// checked before row contents because the row set collapses duplicates.
// Neither envelope is modified.
func (c Comparator) Compare(candidate, expected *Envelope) Verdict {
	if candidate == nil || !candidate.Success {
		return Verdict{Kind: VerdictExecutionFailed, Message: MsgExecutionFailed}
	}
	if expected == nil {
		expected = &Envelope{}
	}

	if diff := c.columnDiff(candidate.Columns, expected.Columns); diff != nil {
		return Verdict{Kind: VerdictColumnMismatch, Message: MsgColumnMismatch, Diff: diff}
	}

	if candidate.RowCount != expected.RowCount {
		return Verdict{
			Kind:    VerdictRowCountMismatch,
			Message: fmt.Sprintf("Row count mismatch: expected %d, got %d", expected.RowCount, candidate.RowCount),
		}
	}

	if !sameRowSet(normalizeRows(candidate.Rows), normalizeRows(expected.Rows)) {
		return Verdict{Kind: VerdictValueMismatch, Message: MsgResultMismatch}
	}

	return Verdict{Correct: true, Kind: VerdictCorrect, Message: MsgCorrect}
}

// columnDiff returns nil when both column sets are equal.
func (c Comparator) columnDiff(candidate, expected []string) *Diff {
	got := c.columnSet(candidate)
	want := c.columnSet(expected)

	missing := []string{}
	for key, name := range want {
		if _, ok := got[key]; !ok {
			missing = append(missing, name)
		}
	}
	extra := []string{}
	for key, name := range got {
		if _, ok := want[key]; !ok {
			extra = append(extra, name)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	slices.Sort(missing)
	slices.Sort(extra)
	return &Diff{MissingColumns: missing, ExtraColumns: extra}
}

func (c Comparator) columnSet(cols []string) map[string]string {
	set := make(map[string]string, len(cols))
	for _, name := range cols {
		key := name
		if c.FoldColumnCase {
			key = strings.ToLower(name)
		}
		set[key] = name
	}
	return set
}

// normalizeRows maps every row to a key built from its sorted cell texts and
// collects the keys into a set. Duplicate rows collapse. Each cell is length
// prefixed so no cell content can shift a boundary between cells.
func normalizeRows(rows [][]any) map[string]struct{} {
	set := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = CellText(v)
		}
		slices.Sort(cells)

		var key strings.Builder
		for _, c := range cells {
			key.WriteString(strconv.Itoa(len(c)))
			key.WriteByte(':')
			key.WriteString(c)
		}
		set[key.String()] = struct{}{}
	}
	return set
}

func sameRowSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
