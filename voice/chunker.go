package voice

import "unicode"

// DefaultMaxChunkLen is the chunk size used for speech synthesis requests.
const DefaultMaxChunkLen = 200

// Split partitions text into consecutive, non-overlapping chunks of at most
// maxLen runes each. Concatenating the result reconstructs the input exactly.
//
// Breaks prefer the last whitespace at or before maxLen so chunks do not end
// mid-word; a window without any whitespace is hard-split at exactly maxLen.
// The whitespace at a soft break stays with the leading chunk.
func Split(text string, maxLen int) []string {
	if maxLen <= 0 || text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); {
		remaining := len(runes) - start
		if remaining <= maxLen {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut := start + maxLen
		for i := cut; i > start; i-- {
			if unicode.IsSpace(runes[i-1]) {
				cut = i
				break
			}
		}

		chunks = append(chunks, string(runes[start:cut]))
		start = cut
	}

	return chunks
}
