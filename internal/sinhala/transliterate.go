package sinhala

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Independent vowels.
var independentVowels = map[rune]string{
	'අ': "a", 'ආ': "aa", 'ඇ': "ae", 'ඈ': "aae",
	'ඉ': "i", 'ඊ': "ii", 'උ': "u", 'ඌ': "uu",
	'ඍ': "ri", 'ඎ': "rii", 'එ': "e", 'ඒ': "ee",
	'ඓ': "ai", 'ඔ': "o", 'ඕ': "oo", 'ඖ': "au",
}

// Consonants without their inherent vowel.
var consonants = map[rune]string{
	'ක': "k", 'ග': "g", 'ච': "ch", 'ජ': "j",
	'ට': "t", 'ඩ': "d", 'ණ': "n", 'ත': "th",
	'ද': "d", 'න': "n", 'ප': "p", 'බ': "b",
	'ම': "m", 'ය': "y", 'ර': "r", 'ල': "l",
	'ව': "v", 'ස': "s", 'හ': "h", 'ළ': "l",
	'ෆ': "f",
}

// Vowel diacritics that modify a consonant.
var vowelDiacritics = map[rune]string{
	'ා': "aa", 'ැ': "ae", 'ෑ': "aae",
	'ි': "i", 'ී': "ii", 'ු': "u",
	'ූ': "uu", 'ෙ': "e", 'ේ': "ee",
	'ෛ': "ai", 'ො': "o", 'ෝ': "oo",
	'ෞ': "au",
}

// Diacritics that need an extra "a" before the mapped vowel.
var diacriticsRequiringA = map[rune]bool{'ෙ': true, 'ේ': true}

// halKirima suppresses a consonant's inherent vowel.
const halKirima = '්'

// Transliterate converts Sinhala text to a phonetic Latin rendering that a
// Malay TTS voice pronounces acceptably. Characters outside the mappings
// pass through unchanged.
func Transliterate(text string) string {
	runes := []rune(norm.NFC.String(text))
	var b strings.Builder
	i := 0

	for i < len(runes) {
		ch := runes[i]

		if v, ok := independentVowels[ch]; ok {
			b.WriteString(v)
			i++
			continue
		}

		if _, ok := consonants[ch]; ok {
			if i+1 < len(runes) && runes[i+1] == halKirima {
				// Consonant cluster: collect every consonant+hal pair,
				// then attach the base consonant with its vowel.
				var cluster strings.Builder
				for i < len(runes) && isConsonant(runes[i]) && i+1 < len(runes) && runes[i+1] == halKirima {
					cluster.WriteString(consonants[runes[i]])
					i += 2
				}
				if i < len(runes) && isConsonant(runes[i]) {
					base := consonants[runes[i]]
					i++
					base += takeVowel(runes, &i)
					b.WriteString(cluster.String())
					b.WriteString(base)
				} else {
					b.WriteString(cluster.String())
				}
			} else {
				base := consonants[ch]
				i++
				base += takeVowel(runes, &i)
				b.WriteString(base)
			}
			continue
		}

		if v, ok := vowelDiacritics[ch]; ok {
			b.WriteString(v)
			i++
			continue
		}

		if ch == halKirima {
			i++
			continue
		}

		b.WriteRune(ch)
		i++
	}

	return b.String()
}

// takeVowel consumes a following vowel diacritic, or yields the inherent
// "a" when none is present.
func takeVowel(runes []rune, i *int) string {
	if *i < len(runes) {
		if v, ok := vowelDiacritics[runes[*i]]; ok {
			d := runes[*i]
			*i++
			if diacriticsRequiringA[d] {
				return "a" + v
			}
			return v
		}
	}
	return "a"
}

func isConsonant(ch rune) bool {
	_, ok := consonants[ch]
	return ok
}
