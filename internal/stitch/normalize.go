package stitch

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// maxStrayLatinRunes is the longest all-Latin token dropped as OCR noise from
// a line in a non-Latin script.
const maxStrayLatinRunes = 2

// Normalizer reduces raw OCR text to a canonical form used only for
// comparison. The zero value normalizes for ScriptAny.
type Normalizer struct {
	script Script
}

// NewNormalizer returns a normalizer for the given target script.
func NewNormalizer(script Script) Normalizer {
	return Normalizer{script: script}
}

// Normalize returns the canonical form of raw. It never fails; text with no
// subtitle content maps to "". Normalize(Normalize(x)) == Normalize(x).
func (n Normalizer) Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	folded := norm.NFKC.String(width.Fold.String(raw))
	// Caser values are stateful, so one is built per call.
	folded = norm.NFKC.String(cases.Fold().String(folded))

	tokens := strings.FieldsFunc(folded, isSeparator)
	kept := tokens[:0]
	for _, token := range tokens {
		if isPunctuationFragment(token) {
			continue
		}
		kept = append(kept, token)
	}
	if n.script.nonLatin() {
		kept = n.dropStrayLatin(kept)
	}
	return strings.Join(kept, " ")
}

func (n Normalizer) dropStrayLatin(tokens []string) []string {
	hasTarget := false
	for _, token := range tokens {
		if n.script.containsTarget(token) {
			hasTarget = true
			break
		}
	}
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if isStrayLatin(token) {
			continue
		}
		out = append(out, token)
	}
	if hasTarget || len(out) == 0 {
		return out
	}
	// Without any target-script text the Latin tokens are the line itself.
	return tokens
}

func (s Script) nonLatin() bool {
	switch s {
	case ScriptHan, ScriptKana, ScriptHangul:
		return true
	default:
		return false
	}
}

func (s Script) containsTarget(token string) bool {
	for _, r := range token {
		switch s {
		case ScriptHan:
			if unicode.Is(unicode.Han, r) {
				return true
			}
		case ScriptKana:
			if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
				return true
			}
		case ScriptHangul:
			if unicode.Is(unicode.Hangul, r) {
				return true
			}
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r) || r == '\u200b' || r == '\ufeff'
}

func isPunctuationFragment(token string) bool {
	for _, r := range token {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

func isStrayLatin(token string) bool {
	count := 0
	for _, r := range token {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
		count++
	}
	return count > 0 && count <= maxStrayLatinRunes
}
