package model

import "slices"

// WordCard is one quiz item: an Italian word and the set of English
// translations accepted as correct answers. Translations are stored
// already normalized (lowercase, letters and spaces only).
type WordCard struct {
	Italian string
	English []string
}

// Accepts reports whether answer exactly matches one of the acceptable
// translations. Comparison is case-sensitive: answers are matched against
// the normalized forms as-is.
func (w WordCard) Accepts(answer string) bool {
	return slices.Contains(w.English, answer)
}
