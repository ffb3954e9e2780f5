// Package numgen produces the numeric identifiers carried by taxpayer
// records: 12-digit payment references and 18-digit ID/batch numbers.
package numgen

import (
	"context"
	"errors"
	"math/rand"
	"strings"
)

// MaxAttempts caps the collision-avoidance loop. The loop reduces but cannot
// eliminate races against concurrent creators; the store's unique index is
// the final authority, so exhausting the cap is a terminal failure rather
// than a reason to retry without bound.
const MaxAttempts = 10

// ErrExhausted is returned when no collision-free candidate was found within
// MaxAttempts proposals.
var ErrExhausted = errors.New("identifier generation exhausted after 10 attempts")

// Generate returns a random digit string of the given length. The first
// digit is 1-9 unless a leading zero is explicitly allowed.
func Generate(length int, allowLeadingZero bool) string {
	if length <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		if i == 0 && !allowLeadingZero {
			b.WriteByte(byte('1' + rand.Intn(9)))
			continue
		}
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	return b.String()
}

// Unique returns a candidate of the given length for which taken reports
// false, along with the number of proposals consumed. The first candidate may
// be supplied by the caller (operator-provided value); when it is empty a
// fresh one is generated. Each conflict triggers a regeneration, up to
// MaxAttempts total proposals.
func Unique(ctx context.Context, length int, candidate string, taken func(context.Context, string) (bool, error)) (string, int, error) {
	if candidate == "" {
		candidate = Generate(length, false)
	}
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		inUse, err := taken(ctx, candidate)
		if err != nil {
			return "", attempt, err
		}
		if !inUse {
			return candidate, attempt, nil
		}
		candidate = Generate(length, false)
	}
	return "", MaxAttempts, ErrExhausted
}
