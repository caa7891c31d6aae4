// Package scorer rates recognised page text against a weighted lexicon of
// terms that typically appear on scanlation credit pages.
package scorer

import "strings"

// DefaultThreshold is the minimum score for a page to be kept.
const DefaultThreshold = 2.0

// Term is a lexicon entry.
type Term struct {
	Text   string
	Weight float64
}

// lexicon is scanned in order; Result.Found follows this order.
var lexicon = []Term{
	{"translation", 1},
	{"translate", 1},
	{"translating", 1},
	{"translator", 1},
	{"credit", 1},
	{"redraw", 1},
	{"typeset", 2},
	{"proofread", 1.5},
	{"wordpress", 2},
	{"scans", 1},
	{"raws", 0.5},
	{"rizon", 1},
	{"staff", 0.5},
	{"editor", 0.5},
	{"typos", 1.5},
	{"release", 0.5},
	{"v2", 0.5},
	{"raw provider", 2},
	{"cleaner", 0.5},
	{"quality check", 1},
	{"letterer", 1},
	{"cleaning", 0.5},
	{"editing", 1},
	{"tumblr", 1.5},
}

// Lexicon returns a copy of the scoring table in scan order.
func Lexicon() []Term {
	return append([]Term(nil), lexicon...)
}

// Result is the outcome of scoring one page.
type Result struct {
	Score float64  `json:"score"`
	Text  string   `json:"text"`
	Found []string `json:"found"`
}

// Score lowercases text and sums the weights of the lexicon terms it contains.
//
// Only the first occurrence of each term is considered, and it must start
// after index 0: a term at the very beginning of the text never counts, even
// if it appears again later. Each term contributes at most once.
func Score(text string) Result {
	lower := strings.ToLower(text)

	res := Result{Text: lower, Found: []string{}}
	for _, term := range lexicon {
		if strings.Index(lower, term.Text) > 0 {
			res.Score += term.Weight
			res.Found = append(res.Found, term.Text)
		}
	}
	return res
}

// Qualifies reports whether score reaches threshold.
func Qualifies(score, threshold float64) bool {
	return score >= threshold
}
