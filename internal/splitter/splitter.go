// Package splitter implements fixed-size text chunking with overlap for
// embedding and retrieval.
//
// Chunks are measured in runes, not bytes, so multi-byte content never gets
// cut mid-character. Concatenating the chunks with each chunk's leading
// overlap removed reconstructs the input exactly.
package splitter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChunking indicates inconsistent size/overlap parameters.
var ErrInvalidChunking = errors.New("invalid chunk size/overlap")

// separators are tried in order when looking for a natural break point
// near the end of a chunk: paragraph, line, sentence, word.
var separators = []string{"\n\n", "\n", ". ", " "}

// Split partitions content into overlapping chunks of at most size runes.
// Consecutive chunks share exactly overlap runes, except when a natural
// break point was chosen near the chunk boundary or at the end of the
// document, where fewer remain.
//
// Empty content yields zero chunks; content of at most size runes yields a
// single chunk equal to the whole content.
//
// Returns ErrInvalidChunking if size is non-positive, overlap is negative,
// or overlap is not strictly less than size.
func Split(content string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size=%d, must be positive", ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap=%d, must be in [0, size)", ErrInvalidChunking, overlap)
	}

	if content == "" {
		return nil, nil
	}

	runes := []rune(content)
	n := len(runes)
	if n <= size {
		return []string{content}, nil
	}

	var chunks []string
	start := 0
	for {
		end := start + size
		if end >= n {
			chunks = append(chunks, string(runes[start:n]))
			break
		}

		cut := naturalBreak(runes, start, end, overlap)
		chunks = append(chunks, string(runes[start:cut]))

		// The next chunk re-reads the trailing overlap of this one.
		start = cut - overlap
	}

	return chunks, nil
}

// naturalBreak returns the cut position for a chunk spanning [start, end).
// It prefers the latest separator occurrence within a lookback window so
// chunks end on a paragraph, line, sentence, or word boundary when one is
// close enough; otherwise it hard-cuts at end.
//
// The returned position always exceeds start+overlap, which guarantees
// forward progress of the sliding window.
func naturalBreak(runes []rune, start, end, overlap int) int {
	size := end - start

	// Only look back over the tail of the chunk; a break point far from
	// the boundary would waste most of the window.
	lookback := size / 6
	if lookback < 1 {
		return end
	}
	floor := end - lookback
	if min := start + overlap + 1; floor < min {
		floor = min
	}
	if floor >= end {
		return end
	}

	window := string(runes[floor:end])
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i >= 0 {
			// Cut after the separator so nothing is dropped.
			return floor + len([]rune(window[:i])) + len([]rune(sep))
		}
	}

	return end
}

// Reassemble reverses Split: it concatenates chunks, dropping each chunk's
// leading overlap. Used by tests to check losslessness; exported because
// ingestion diagnostics use it to verify a document round-trips.
func Reassemble(chunks []string, overlap int) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			b.WriteString(chunk)
			continue
		}
		r := []rune(chunk)
		if len(r) <= overlap {
			continue
		}
		b.WriteString(string(r[overlap:]))
	}
	return b.String()
}
