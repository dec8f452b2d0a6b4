package retrieval

import "strings"

// SplitText cuts text into overlapping chunks of at most size characters.
// Cut points prefer paragraph breaks, then sentence ends, then whitespace
// inside the window [size-overlap, size]; when no boundary exists there the
// text is cut hard at size. Trailing content shorter than size becomes a
// final (possibly short) chunk. No returned chunk is empty.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	clean := strings.ReplaceAll(text, "\r\n", "\n")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return nil
	}

	chunks := make([]string, 0)
	start := 0
	for start < len(clean) {
		remaining := len(clean) - start
		if remaining <= size {
			if piece := strings.TrimSpace(clean[start:]); piece != "" {
				chunks = append(chunks, piece)
			}
			break
		}

		end := start + size
		if cut := boundaryCut(clean, start+size-overlap, end); cut > start {
			end = cut
		}

		if piece := strings.TrimSpace(clean[start:end]); piece != "" {
			chunks = append(chunks, piece)
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// boundaryCut searches backwards from hi for the best split point not before
// lo. Paragraph breaks win over sentence ends, sentence ends over whitespace.
func boundaryCut(text string, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}

	if idx := strings.LastIndex(text[lo:hi], "\n\n"); idx >= 0 {
		return lo + idx
	}

	for i := hi - 1; i >= lo; i-- {
		if isSentenceEnd(text[i]) && i+1 < len(text) && isSpace(text[i+1]) {
			return i + 1
		}
	}

	for i := hi - 1; i >= lo; i-- {
		if isSpace(text[i]) {
			return i
		}
	}

	return hi
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t'
}
