package ai

import (
	"strings"
	"unicode"
)

// stopwords are dropped before hashing and sentence scoring
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an and are as at be been but by can could
		did do does for from had has have how i if in into is it its me my no nor
		of on or our ours so than that the their them then there these they this
		those through to us was we were what when where which while who whom why
		will with would you your`) {
		stopwords[w] = struct{}{}
	}
}

// Tokenize lowercases text and splits it into letter/digit runs, dropping
// stopwords
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// splitSentences breaks text into trimmed sentences on terminal punctuation
// and line breaks
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	runes := []rune(text)
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return out
}

// isFragment reports whether a sentence looks like the cut-off tail of a
// previous one, as produced by chunk overlap
func isFragment(sentence string) bool {
	for _, r := range sentence {
		return unicode.IsLower(r) || unicode.IsPunct(r)
	}
	return true
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokenize(text) {
		set[t] = struct{}{}
	}
	return set
}
