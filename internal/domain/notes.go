package domain

import "strings"

// NaturalNotes are the seven pitch-class letters the course teaches.
var NaturalNotes = []string{"C", "D", "E", "F", "G", "A", "B"}

// DefaultOctave tags generated notes; grading ignores it.
const DefaultOctave = "4"

// NoteLetter extracts the pitch-class letter from a note or answer string:
// the first rune, upper-cased. An empty string yields "" which never matches
// any target.
func NoteLetter(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1])
}
