package script

// FindBalancedSpan returns the first span of text that starts with open and
// ends with the matching close, skipping delimiters that appear inside JSON
// string literals. It reports false when no opener exists or the first opener
// is never closed.
func FindBalancedSpan(text string, open, closing byte) (string, bool) {
	start := -1

	for i := 0; i < len(text); i++ {
		if text[i] == open {
			start = i

			break
		}
	}

	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case char == '\\':
				escaped = true
			case char == '"':
				inString = false
			}

			continue
		}

		switch char {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
