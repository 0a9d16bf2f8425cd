package models

import "strings"

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Snippet returns the first n runes of s followed by "..." when s was longer.
func Snippet(s string, n int) string {
	t := TruncateRunes(s, n)
	if t != s {
		return t + "..."
	}
	return t
}

// RuneLen counts runes in the trimmed string.
func RuneLen(s string) int {
	return len([]rune(strings.TrimSpace(s)))
}
