package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Accepts(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()

	tests := []struct {
		name string
		sql  string
	}{
		{"simple select", "SELECT id FROM employees"},
		{"lowercase", "select id from employees"},
		{"leading whitespace", "   \n\tSELECT 1"},
		{"single trailing semicolon", "SELECT id FROM employees;"},
		{"join and group by", "SELECT d.name, COUNT(*) FROM employees e JOIN departments d ON d.id = e.dept_id GROUP BY d.name"},
		{"subquery", "SELECT name FROM (SELECT name FROM employees) AS t"},
		{"division operator", "SELECT salary / 12 FROM employees"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.NoError(t, v.Validate(tt.sql))
		})
	}
}

func TestValidate_RequiresSelectPrefix(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()

	tests := []struct {
		name string
		sql  string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"with cte", "WITH x AS (SELECT 1) SELECT * FROM x"},
		{"explain", "EXPLAIN SELECT 1"},
		{"show", "SHOW TABLES"},
		{"parenthesized select", "(SELECT 1)"},
		{"pragma", "PRAGMA table_info(employees)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Validate(tt.sql)
			require.ErrorIs(t, err, ErrNotAllowed)
			assert.Equal(t, "only SELECT queries are allowed", err.Error())
		})
	}
}

func TestValidate_ForbiddenKeywords(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()

	tests := []struct {
		name    string
		sql     string
		keyword string
	}{
		{"drop", "SELECT 1; DROP TABLE employees", "DROP"},
		{"delete lowercase", "select * from t where x in (delete from t)", "DELETE"},
		{"insert", "SELECT * FROM t UNION INSERT", "INSERT"},
		{"exec prefix of execute", "SELECT execute_me FROM t", "EXEC"},
		{"inside string literal", "SELECT * FROM logs WHERE msg = 'please drop me'", "DROP"},
		{"inside identifier", "SELECT update_date FROM employees", "UPDATE"},
		{"created_at column", "SELECT created_at FROM orders", "CREATE"},
		{"first listed keyword wins", "SELECT update_date, dropped FROM t", "DROP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Validate(tt.sql)
			require.ErrorIs(t, err, ErrForbiddenKeyword)

			var kwErr *ForbiddenKeywordError
			require.ErrorAs(t, err, &kwErr)
			assert.Equal(t, tt.keyword, kwErr.Keyword)
			assert.Equal(t, "keyword '"+tt.keyword+"' is not allowed", err.Error())
		})
	}
}

func TestValidate_Comments(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()

	for _, sql := range []string{
		"SELECT 1 -- trailing",
		"SELECT /* hidden */ 1",
		"SELECT 1 */",
		"SELECT '--' AS dashes",
	} {
		t.Run(sql, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, v.Validate(sql), ErrCommentNotAllowed)
		})
	}
}

func TestValidate_MultipleStatements(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()

	assert.ErrorIs(t, v.Validate("SELECT 1; SELECT 2;"), ErrMultiStatement)
	assert.ErrorIs(t, v.Validate("SELECT ';;'"), ErrMultiStatement)
	assert.NoError(t, v.Validate("SELECT 1; SELECT 2"), "a single ';' is tolerated")
}

func TestValidate_CheckOrder(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()

	// Prefix check runs before the keyword scan.
	assert.ErrorIs(t, v.Validate("DROP TABLE employees"), ErrNotAllowed)
	// Keyword scan runs before the comment check.
	assert.ErrorIs(t, v.Validate("SELECT 1 -- DROP"), ErrForbiddenKeyword)
	// Comment check runs before the statement count.
	assert.ErrorIs(t, v.Validate("SELECT 1; SELECT 2; --"), ErrCommentNotAllowed)
}

func TestValidate_StackedStatementScenario(t *testing.T) {
	t.Parallel()
	const sql = "SELECT * FROM employees; DROP TABLE employees;"

	err := NewQueryValidator().Validate(sql)
	require.ErrorIs(t, err, ErrForbiddenKeyword)
	assert.Contains(t, err.Error(), "DROP")

	// Without the keyword deny list the same text still fails the statement count.
	noKeywords := DefaultPolicy()
	noKeywords.ForbiddenKeywords = nil
	assert.ErrorIs(t, NewLexicalValidator(noKeywords).Validate(sql), ErrMultiStatement)
}

func TestValidate_SelectEmployeesScenario(t *testing.T) {
	t.Parallel()
	assert.NoError(t, NewQueryValidator().Validate("SELECT id FROM employees"))
}

func TestValidate_Deterministic(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()
	for range 3 {
		assert.ErrorIs(t, v.Validate("SELECT 1 /* x */"), ErrCommentNotAllowed)
		assert.NoError(t, v.Validate("SELECT 1"))
	}
}

func TestPolicy_WithExtraKeywords(t *testing.T) {
	t.Parallel()
	base := DefaultPolicy()
	p := base.WithExtraKeywords(" sleep ", "", "DROP", "benchmark")

	assert.Len(t, base.ForbiddenKeywords, len(DefaultForbiddenKeywords), "base policy must not change")
	assert.Equal(t, append(append([]string{}, DefaultForbiddenKeywords...), "SLEEP", "BENCHMARK"), p.ForbiddenKeywords)

	err := NewLexicalValidator(p).Validate("SELECT SLEEP(10)")
	var kwErr *ForbiddenKeywordError
	require.ErrorAs(t, err, &kwErr)
	assert.Equal(t, "SLEEP", kwErr.Keyword)
}

func TestIsValidationError(t *testing.T) {
	t.Parallel()
	assert.True(t, IsValidationError(ErrNotAllowed))
	assert.True(t, IsValidationError(&ForbiddenKeywordError{Keyword: "DROP"}))
	assert.True(t, IsValidationError(ErrCommentNotAllowed))
	assert.True(t, IsValidationError(ErrMultiStatement))
	assert.False(t, IsValidationError(ErrUnknownDatabase))
	assert.False(t, IsValidationError(nil))
}
