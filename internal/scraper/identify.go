package scraper

import (
	"fmt"
	"regexp"

	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

// slugPatterns are the recognized competition URL shapes, in order.
var slugPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/c/([^/?#]+)`),
	regexp.MustCompile(`/competitions/([^/?#]+)`),
}

// ExtractSlug resolves the competition identifier from a URL. This is
// the only fatal step of a scrape: no identifier, nothing to fetch.
func ExtractSlug(rawURL string) (string, error) {
	for _, re := range slugPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil && m[1] != "" {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w: %q", types.ErrBadCompetitionURL, rawURL)
}
