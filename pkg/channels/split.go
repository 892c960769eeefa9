package channels

import "strings"

// SplitMessage cuts text into chunks of at most maxLen runes, preferring
// paragraph breaks, then line breaks, then spaces.
func SplitMessage(text string, maxLen int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return []string{text}
	}

	var out []string
	for len(runes) > 0 {
		if len(runes) <= maxLen {
			if tail := strings.TrimSpace(string(runes)); tail != "" {
				out = append(out, tail)
			}
			break
		}

		splitAt := findSplitPoint(runes, maxLen)
		if chunk := strings.TrimSpace(string(runes[:splitAt])); chunk != "" {
			out = append(out, chunk)
		}
		runes = runes[splitAt:]
		for len(runes) > 0 && isSpace(runes[0]) {
			runes = runes[1:]
		}
	}
	return out
}

func findSplitPoint(runes []rune, limit int) int {
	if len(runes) <= limit {
		return len(runes)
	}
	if limit <= 1 {
		return 1
	}

	floor := limit / 2
	for i := limit; i > floor; i-- {
		if i > 1 && runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	for i := limit; i > floor; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	for i := limit; i > floor; i-- {
		if runes[i-1] == ' ' || runes[i-1] == '\t' {
			return i
		}
	}
	return limit
}

func isSpace(r rune) bool {
	return r == '\n' || r == '\r' || r == ' ' || r == '\t'
}
