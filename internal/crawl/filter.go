package crawl

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// keywordFilter keeps items whose title or raw text contains any keyword,
// compared after Unicode case folding and NFC normalization. Not safe for
// concurrent use.
type keywordFilter struct {
	keywords []string
	caser    cases.Caser
}

func newKeywordFilter(keywords []string) *keywordFilter {
	f := &keywordFilter{caser: cases.Fold()}
	for _, keyword := range keywords {
		folded := f.fold(strings.TrimSpace(keyword))
		if folded != "" {
			f.keywords = append(f.keywords, folded)
		}
	}
	return f
}

func (f *keywordFilter) fold(value string) string {
	return f.caser.String(norm.NFC.String(value))
}

func (f *keywordFilter) Match(ref ItemRef) bool {
	if len(f.keywords) == 0 {
		return true
	}
	haystack := f.fold(ref.Title + "\n" + ref.RawText)
	for _, keyword := range f.keywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}
