package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"adaeze":        "adaeze",
		"100%":          `100\%`,
		"id_batch":      `id\_batch`,
		`back\slash`:    `back\\slash`,
		`%_\ all three`: `\%\_\\ all three`,
	}
	for in, want := range cases {
		assert.Equal(t, want, escapeLike(in), "input %q", in)
	}
}

func TestEndOfDay(t *testing.T) {
	in := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	got := endOfDay(in)

	assert.Equal(t, time.Date(2026, 3, 15, 23, 59, 59, 999_000_000, time.UTC), got)

	// A record created at the very last millisecond still falls inside the day
	last := time.Date(2026, 3, 15, 23, 59, 59, 999_000_000, time.UTC)
	assert.False(t, last.After(got))
	assert.True(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC).After(got))
}
