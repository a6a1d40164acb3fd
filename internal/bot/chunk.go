package bot

import (
	"errors"
	"fmt"
)

// ErrInvalidLimit indicates a non-positive message limit.
var ErrInvalidLimit = errors.New("message limit must be positive")

// SplitMessage partitions an answer into parts of at most limit characters
// (Unicode code points, which is what Discord counts). Splitting is strict
// fixed-width slicing at limit boundaries, not word-aware, so the
// concatenation of the parts is always exactly the input.
//
// The result is never empty: an answer that fits in one message (including
// the empty answer) comes back as a single part, unchanged.
//
// Returns ErrInvalidLimit when limit is non-positive; there are no other
// failure modes.
func SplitMessage(answer string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}

	runes := []rune(answer)
	if len(runes) <= limit {
		return []string{answer}, nil
	}

	parts := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts, nil
}
