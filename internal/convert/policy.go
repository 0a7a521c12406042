// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import "regexp"

// words matches alphabetic runs of three or more ASCII letters.
var words = regexp.MustCompile(`[A-Za-z]{3,}`)

// WordCount returns the number of non-overlapping alphabetic runs of length
// three or more in text.
func WordCount(text string) int {
	return len(words.FindAllStringIndex(text, -1))
}

// SuccessPolicy decides whether directly extracted text is good enough to
// keep, or whether a PDF should go through OCR instead.
type SuccessPolicy interface {
	Succeeded(text string) bool
}

// PolicyFunc adapts a function to SuccessPolicy.
type PolicyFunc func(text string) bool

func (f PolicyFunc) Succeeded(text string) bool { return f(text) }

// WordCountPolicy succeeds when WordCount(text) is strictly greater than Min.
type WordCountPolicy struct {
	Min int
}

// DefaultMinWords is the threshold used when none is configured.
const DefaultMinWords = 10

func (p WordCountPolicy) Succeeded(text string) bool {
	return WordCount(text) > p.Min
}
