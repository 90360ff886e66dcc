package topics

import (
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// tokenizer turns page text into label candidates: unicode word
// segmentation, lowercasing, English plus caller stopwords, then a length
// and numeric filter.
type tokenizer struct {
	words     analysis.Tokenizer
	lower     analysis.TokenFilter
	stop      analysis.TokenFilter
	minLength int
}

func newTokenizer(extraStopwords []string, minLength int) (*tokenizer, error) {
	stopwords := analysis.NewTokenMap()
	if err := stopwords.LoadBytes(en.EnglishStopWords); err != nil {
		return nil, err
	}
	for _, w := range extraStopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			stopwords.AddToken(w)
		}
	}

	return &tokenizer{
		words:     unicode.NewUnicodeTokenizer(),
		lower:     lowercase.NewLowerCaseFilter(),
		stop:      stop.NewStopTokensFilter(stopwords),
		minLength: minLength,
	}, nil
}

// Tokenize returns the surviving terms of text in order of appearance.
func (t *tokenizer) Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	stream := t.words.Tokenize([]byte(text))
	stream = t.lower.Filter(stream)
	stream = t.stop.Filter(stream)

	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if tok.Type == analysis.Numeric || isNumeric(tok.Term) {
			continue
		}
		if utf8.RuneCount(tok.Term) < t.minLength {
			continue
		}
		terms = append(terms, string(tok.Term))
	}
	return terms
}

func isNumeric(term []byte) bool {
	for _, b := range term {
		if (b < '0' || b > '9') && b != '.' && b != ',' {
			return false
		}
	}
	return len(term) > 0
}
