// Package sinhala holds script-level helpers: input validation, filtering,
// and the phonetic transliteration used when the upstream TTS voice has no
// native Sinhala support.
package sinhala

import "regexp"

// Sinhala block is U+0D80..U+0DFF.
var (
	filterRe = regexp.MustCompile(`[^\x{0D80}-\x{0DFF}\s\x{2013}\x{2014}\x{2018}\x{2019}\x{201C}\x{201D}!?,.:;"'-]`)
	inputRe  = regexp.MustCompile(`^[\x{0D80}-\x{0DFF} 0-9.,!?;:'"()\[\]{}«»‹›‘’“”-]*$`)
	latinRe  = regexp.MustCompile(`[a-zA-Z0-9]`)
)

// Filter strips every rune outside the Sinhala script and allowed
// punctuation.
func Filter(text string) string {
	return filterRe.ReplaceAllString(text, "")
}

// IsValidInput reports whether typed text is acceptable for sending:
// Sinhala characters, digits and punctuation only. Empty text is valid
// here; emptiness is checked separately at send time.
func IsValidInput(text string) bool {
	return inputRe.MatchString(text)
}

// ContainsLatin reports whether text contains English letters or digits.
// Generated patient options must be rejected if this is true.
func ContainsLatin(text string) bool {
	return latinRe.MatchString(text)
}
