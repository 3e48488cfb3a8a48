// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package algorithms

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMinTermLength is the shortest term Tokenize keeps.
const DefaultMinTermLength = 2

// Term prefixes keep structured metadata apart from free text, so a
// category called "laptop" and the word "laptop" in a description are
// separate dimensions.
const (
	CategoryTermPrefix = "cat:"
	HashtagTermPrefix  = "tag:"
)

// stopwords holds English and Vietnamese function words, already folded.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "with": {}, "your": {}, "our": {},
	"new": {}, "best": {}, "very": {},
	"va": {}, "cua": {}, "cho": {}, "la": {}, "cac": {}, "nhung": {}, "voi": {},
	"nay": {}, "co": {}, "duoc": {}, "trong": {}, "mot": {}, "khi": {}, "se": {},
	"da": {}, "thi": {}, "rat": {}, "cung": {},
}

// Tokenize splits text into folded terms of at least DefaultMinTermLength
// runes with stopwords removed.
func Tokenize(text string) []string {
	return TokenizeMin(text, DefaultMinTermLength)
}

// TokenizeMin is Tokenize with an explicit minimum term length.
//
//	TokenizeMin("Laptop Gaming Siêu Mỏng!", 2) // [laptop gaming sieu mong]
func TokenizeMin(text string, minLen int) []string {
	folded := Fold(text)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minLen {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Fold lower-cases s and strips combining marks, so "Điện Thoại" and
// "dien thoai" produce the same terms.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	// đ has no decomposition.
	return strings.ReplaceAll(folded, "đ", "d")
}

// MetadataTerms returns the structured terms for a category path and
// hashtags. Every category path prefix becomes a term so items in
// sibling subcategories still share their parent.
func MetadataTerms(categoryPath, hashtags []string) []string {
	var out []string
	var path strings.Builder
	for _, seg := range categoryPath {
		seg = strings.TrimSpace(Fold(seg))
		if seg == "" {
			continue
		}
		if path.Len() > 0 {
			path.WriteByte('/')
		}
		path.WriteString(seg)
		out = append(out, CategoryTermPrefix+path.String())
	}
	for _, tag := range hashtags {
		tag = strings.TrimSpace(Fold(strings.TrimPrefix(tag, "#")))
		if tag != "" {
			out = append(out, HashtagTermPrefix+tag)
		}
	}
	return out
}
