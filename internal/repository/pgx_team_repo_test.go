package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "rust", expected: "rust"},
		{in: "50%", expected: `50\%`},
		{in: "snake_case", expected: `snake\_case`},
		{in: `C:\dev`, expected: `C:\\dev`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeLike(tt.in))
		})
	}
}

func TestFindTeamsQuery_SearchIsLiteral(t *testing.T) {
	q := findTeamsQuery(&TeamFilter{Open: true, Search: "100%_ai"})

	sql, args, err := q.Build(context.Background())
	require.NoError(t, err)

	assert.Contains(t, sql, "ILIKE")
	assert.Contains(t, args, `%100\%\_ai%`)
	assert.NotContains(t, args, "%100%_ai%")
}

func TestFindTeamsQuery_NoFilter(t *testing.T) {
	q := findTeamsQuery(nil)

	sql, args, err := q.Build(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, args)
}
