package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(cols []string, rows ...[]any) *Envelope {
	return NewSuccessEnvelope(&ResultSet{Columns: cols, Rows: rows}, 3*time.Millisecond)
}

func TestCompare_SameRowsDifferentOrder(t *testing.T) {
	t.Parallel()
	candidate := envelope([]string{"id", "name"}, []any{1, "Alice"}, []any{2, "Bob"})
	expected := envelope([]string{"id", "name"}, []any{2, "Bob"}, []any{1, "Alice"})

	v := Compare(candidate, expected)
	assert.True(t, v.Correct)
	assert.Equal(t, VerdictCorrect, v.Kind)
	assert.Equal(t, MsgCorrect, v.Message)
	assert.Nil(t, v.Diff)
}

func TestCompare_PermutedColumnsAndRows(t *testing.T) {
	t.Parallel()
	candidate := envelope([]string{"name", "id", "dept"},
		[]any{"Alice", 1, "Sales"},
		[]any{"Bob", 2, "Engineering"},
		[]any{"Cara", 3, "Sales"},
	)
	expected := envelope([]string{"dept", "id", "name"},
		[]any{"Sales", 3, "Cara"},
		[]any{"Sales", 1, "Alice"},
		[]any{"Engineering", 2, "Bob"},
	)

	assert.True(t, Compare(candidate, expected).Correct)
	assert.True(t, Compare(expected, candidate).Correct)
}

func TestCompare_SingleCellDiffers(t *testing.T) {
	t.Parallel()
	candidate := envelope([]string{"id", "name"}, []any{1, "Alice"}, []any{2, "Bob"})
	expected := envelope([]string{"id", "name"}, []any{1, "Alice"}, []any{2, "Bobby"})

	v := Compare(candidate, expected)
	assert.False(t, v.Correct)
	assert.Equal(t, VerdictValueMismatch, v.Kind)
	assert.Equal(t, MsgResultMismatch, v.Message)
	assert.Nil(t, v.Diff)
}

func TestCompare_MissingColumn(t *testing.T) {
	t.Parallel()
	candidate := envelope([]string{"id", "name"}, []any{1, "Alice"})
	expected := envelope([]string{"id", "name", "dept"}, []any{1, "Alice", "Sales"})

	v := Compare(candidate, expected)
	assert.False(t, v.Correct)
	assert.Equal(t, VerdictColumnMismatch, v.Kind)
	assert.Equal(t, MsgColumnMismatch, v.Message)
	require.NotNil(t, v.Diff)
	assert.Equal(t, []string{"dept"}, v.Diff.MissingColumns)
	assert.Empty(t, v.Diff.ExtraColumns)
}

func TestCompare_ExtraAndMissingColumnsSorted(t *testing.T) {
	t.Parallel()
	candidate := envelope([]string{"id", "zeta", "alpha"})
	expected := envelope([]string{"id", "name", "dept"})

	v := Compare(candidate, expected)
	require.NotNil(t, v.Diff)
	assert.Equal(t, []string{"dept", "name"}, v.Diff.MissingColumns)
	assert.Equal(t, []string{"alpha", "zeta"}, v.Diff.ExtraColumns)
}

func TestCompare_ColumnCase(t *testing.T) {
	t.Parallel()
	candidate := envelope([]string{"ID", "Name"}, []any{1, "Alice"})
	expected := envelope([]string{"id", "name"}, []any{1, "Alice"})

	assert.Equal(t, VerdictColumnMismatch, Compare(candidate, expected).Kind, "case-sensitive by default")
	assert.True(t, Comparator{FoldColumnCase: true}.Compare(candidate, expected).Correct)
}

func TestCompare_RowCountMismatch(t *testing.T) {
	t.Parallel()
	candidate := envelope([]string{"id"}, []any{1})
	expected := envelope([]string{"id"}, []any{1}, []any{2})

	v := Compare(candidate, expected)
	assert.False(t, v.Correct)
	assert.Equal(t, VerdictRowCountMismatch, v.Kind)
	assert.Equal(t, "Row count mismatch: expected 2, got 1", v.Message)
	assert.Nil(t, v.Diff)
}

func TestCompare_DuplicateRowsCaughtByRowCount(t *testing.T) {
	t.Parallel()
	candidate := envelope([]string{"id"}, []any{1})
	expected := envelope([]string{"id"}, []any{1}, []any{1})

	// The row sets are equal once duplicates collapse; only the earlier row
	// count check tells them apart.
	assert.Equal(t, normalizeRows(candidate.Rows), normalizeRows(expected.Rows))
	assert.Equal(t, VerdictRowCountMismatch, Compare(candidate, expected).Kind)
}

func TestCompare_DuplicatesWithSameCountCollapse(t *testing.T) {
	t.Parallel()
	candidate := envelope([]string{"id"}, []any{1}, []any{1}, []any{2})
	expected := envelope([]string{"id"}, []any{1}, []any{2}, []any{2})

	// Same count, same distinct rows: the set reduction accepts this.
	assert.True(t, Compare(candidate, expected).Correct)
}

func TestCompare_CandidateFailed(t *testing.T) {
	t.Parallel()
	candidate := NewFailureEnvelope("syntax error", time.Millisecond)
	expected := envelope([]string{"id"}, []any{1})

	v := Compare(candidate, expected)
	assert.False(t, v.Correct)
	assert.Equal(t, VerdictExecutionFailed, v.Kind)
	assert.Equal(t, MsgExecutionFailed, v.Message)
	assert.Nil(t, v.Diff)

	assert.Equal(t, VerdictExecutionFailed, Compare(nil, expected).Kind)
}

func TestCompare_ThreeMismatchesAreDistinguishable(t *testing.T) {
	t.Parallel()
	expected := envelope([]string{"id", "name"}, []any{1, "Alice"}, []any{2, "Bob"})

	columns := Compare(envelope([]string{"id"}, []any{1}, []any{2}), expected)
	count := Compare(envelope([]string{"id", "name"}, []any{1, "Alice"}), expected)
	values := Compare(envelope([]string{"id", "name"}, []any{1, "Alice"}, []any{2, "Eve"}), expected)

	assert.NotEqual(t, columns.Message, count.Message)
	assert.NotEqual(t, count.Message, values.Message)
	assert.NotEqual(t, columns.Message, values.Message)
	assert.NotNil(t, columns.Diff)
	assert.Nil(t, count.Diff)
	assert.Nil(t, values.Diff)
}

func TestCompare_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()
	candidate := envelope([]string{"name", "id"}, []any{"Bob", 2}, []any{"Alice", 1})
	expected := envelope([]string{"id", "name"}, []any{1, "Alice"}, []any{2, "Bob"})

	_ = Compare(candidate, expected)

	assert.Equal(t, []string{"name", "id"}, candidate.Columns)
	assert.Equal(t, []any{"Bob", 2}, candidate.Rows[0])
	assert.Equal(t, []string{"id", "name"}, expected.Columns)
}

func TestCompare_MixedCellTypes(t *testing.T) {
	t.Parallel()
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	candidate := envelope([]string{"n", "at", "note"}, []any{int64(7), ts, nil})
	expected := envelope([]string{"n", "at", "note"}, []any{int32(7), ts, nil})

	assert.True(t, Compare(candidate, expected).Correct)
}

func TestCompare_CellSeparatorsCannotMergeRows(t *testing.T) {
	t.Parallel()
	candidate := envelope([]string{"a", "b"}, []any{"x\x1fy", "z"})
	expected := envelope([]string{"a", "b"}, []any{"x", "y\x1fz"})

	v := Compare(candidate, expected)
	assert.False(t, v.Correct)
	assert.Equal(t, VerdictValueMismatch, v.Kind)

	assert.NotEqual(t, normalizeRows([][]any{{"1:2", "3"}}), normalizeRows([][]any{{"1", "2:3"}}))
}
