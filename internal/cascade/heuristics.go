package cascade

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// minProseLen is the substance threshold for the prose heuristic: text
// shorter than this is treated as a label or control, not content.
const minProseLen = 120

// proseFallback scans containers for the first one whose own rendered
// text is long enough to be real prose. Runs only after every structural
// tier of a free-text field has missed.
func (e *Engine) proseFallback(root *goquery.Selection, normalize bool) string {
	var found string

	root.Find("p, section, div").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		// Skip containers that merely wrap other candidates; we want the
		// innermost block carrying the text itself.
		if sel.ChildrenFiltered("p, section, div").Length() > 0 {
			return true
		}
		text := strings.TrimSpace(sel.Text())
		if len(text) < minProseLen {
			return true
		}
		if normalize {
			if html, err := sel.Html(); err == nil {
				found = e.normalizer.Normalize(html)
				return false
			}
		}
		found = text
		return false
	})

	return found
}

// firstInt returns the first integer token in the text. Thousands
// separators inside a token are tolerated ("1,234" parses as 1234).
func firstInt(text string) (int, bool) {
	var b strings.Builder
	inNumber := false

	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
			inNumber = true
		case r == ',' && inNumber:
			// separator inside a number, ignore
		default:
			if inNumber {
				if n, err := strconv.Atoi(b.String()); err == nil {
					return n, true
				}
				b.Reset()
				inNumber = false
			}
		}
	}
	if inNumber {
		if n, err := strconv.Atoi(b.String()); err == nil {
			return n, true
		}
	}
	return 0, false
}
