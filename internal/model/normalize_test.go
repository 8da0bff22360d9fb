package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "bob@x.com", NormalizeEmail("  Bob@X.com "))
}

func TestNormalizeSet(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: []string{}},
		{name: "keeps order", in: []string{"Rust", "go"}, want: []string{"rust", "go"}},
		{name: "drops blanks and duplicates", in: []string{" go ", "", "GO", "rust", "  "}, want: []string{"go", "rust"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSet(tt.in))
		})
	}
}
