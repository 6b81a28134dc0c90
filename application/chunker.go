package application

import "strings"

// chunk boundary separators, tried in priority order. The empty string means
// a hard cut at the target size.
var chunkSeparators = []string{"\n\n", "\n", " "}

// SplitText splits text into overlapping chunks of roughly chunkSize runes.
// Boundaries prefer paragraph breaks, then line breaks, then spaces, falling
// back to a hard cut when no separator occurs in the window. Splitting is
// deterministic: identical text with identical size and overlap always
// yields the same ordered chunk sequence.
func SplitText(text string, chunkSize, chunkOverlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut := boundary(runes[start:end])
		if cut <= 0 {
			cut = chunkSize // hard cut
		}
		end = start + cut
		chunks = append(chunks, string(runes[start:end]))

		next := end - chunkOverlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// boundary returns the index just past the best separator in the window, or
// -1 when none of the separators occur late enough to be useful. Separators
// in the first half of the window are ignored so chunks do not collapse to
// slivers.
func boundary(window []rune) int {
	s := string(window)
	half := len(s) / 2
	for _, sep := range chunkSeparators {
		if idx := strings.LastIndex(s, sep); idx > half {
			return len([]rune(s[:idx+len(sep)]))
		}
	}
	return -1
}
