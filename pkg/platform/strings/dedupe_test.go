package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil slice", nil, nil},
		{"trims and drops empties", []string{" broker-a:9092 ", "", "  ", "broker-b:9092"}, []string{"broker-a:9092", "broker-b:9092"}},
		{"dedupes preserving order", []string{"a", "b", "a", "c", "b"}, []string{"a", "b", "c"}},
		{"case sensitive", []string{"GitHub", "github"}, []string{"GitHub", "github"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DedupeAndTrim(tc.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil slice", nil, nil},
		{"folds case before deduping", []string{"GitHub", "github", "GITHUB"}, []string{"github"}},
		{"trims then folds", []string{"  Spotify ", "twitter", "SPOTIFY"}, []string{"spotify", "twitter"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DedupeAndTrimLower(tc.input))
		})
	}
}
