package match

import "strings"

// stopWords are dropped before keyword containment checks so filler
// words never decide whether a keyword matches a title.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"of": true, "and": true, "or": true,
	"in": true, "at": true, "to": true,
	"for": true, "with": true, "on": true,
	"by": true, "is": true, "are": true,
}

// Tokenize lowercases text, strips punctuation, and returns the set of
// remaining non-stop words.
func Tokenize(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !isWordRune(r)
		})
		w = stripPunct(w)
		if w == "" || stopWords[w] {
			continue
		}
		words[w] = true
	}
	return words
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 0x80
}

func stripPunct(w string) string {
	var b strings.Builder
	for _, r := range w {
		if isWordRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// KeywordMatches reports whether every meaningful word of the keyword
// phrase appears in the title's word set. Word-set containment rather
// than substring search lets "vp engineering" match
// "VP, Engineering & GM".
func KeywordMatches(keyword, title string) bool {
	kw := Tokenize(keyword)
	if len(kw) == 0 {
		return false
	}
	titleWords := Tokenize(title)
	for w := range kw {
		if !titleWords[w] {
			return false
		}
	}
	return true
}

// AnyKeywordMatches reports whether at least one keyword matches the
// title.
func AnyKeywordMatches(keywords []string, title string) bool {
	for _, kw := range keywords {
		if KeywordMatches(kw, title) {
			return true
		}
	}
	return false
}
