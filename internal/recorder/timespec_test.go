package recorder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeSpec(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"plain seconds", "90", 90},
		{"plain seconds with fraction", "90.5", 90.5},
		{"mm:ss", "2:30", 150},
		{"mm:ss zero padded", "02:30", 150},
		{"hh:mm:ss", "1:02:03", 3723},
		{"zero", "0", 0},
		{"zero mm:ss", "0:00", 0},
		{"surrounding whitespace", "  2:30  ", 150},
		{"large hours", "100:00:00", 360000},
		{"negative plain number parses, range check is the caller's", "-5", -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeSpec(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeSpecMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"letters", "abc"},
		{"letters in component", "1:ab"},
		{"too many components", "1:2:3:4"},
		{"single colon", ":"},
		{"trailing colon", "2:30:"},
		{"only colon separated blanks", "::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTimeSpec(tt.input)
			require.Error(t, err)

			var validation ValidationError
			assert.True(t, errors.As(err, &validation), "malformed input should be a validation error, got %v", err)
			assert.NotErrorIs(t, err, ErrEmptyTimeSpec)
		})
	}
}

func TestParseTimeSpecEmptyIsDistinct(t *testing.T) {
	// Empty means "no time requested" and must not look like a parse failure.
	for _, input := range []string{"", "   ", "\t"} {
		_, err := ParseTimeSpec(input)
		assert.ErrorIs(t, err, ErrEmptyTimeSpec, "input %q", input)
	}
}
