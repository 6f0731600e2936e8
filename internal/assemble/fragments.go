package assemble

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Fragment location follows the same cascade discipline as field
// extraction: purpose-built markers first, then class patterns, then a
// generic tier that walks up from the links themselves.

// threadFragments locates top-level discussion fragments in a listing.
func threadFragments(doc *goquery.Document) []*goquery.Selection {
	for _, sel := range []string{
		`[data-testid="discussion-item"]`,
		"li.discussion-item",
		"tr.discussion-row",
	} {
		if frags := collect(doc, sel); len(frags) > 0 {
			return frags
		}
	}

	// Generic tier: one fragment per id-bearing discussion link,
	// widened to its nearest list-item-like container.
	var frags []*goquery.Selection
	doc.Find(`a[href*="/discussion"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !discussionIDRe.MatchString(href) {
			return
		}
		frag := link.Closest("li, tr")
		if frag.Length() == 0 {
			frag = link.Parent()
		}
		if frag.Length() == 0 {
			frag = link
		}
		frags = append(frags, frag)
	})
	return frags
}

// postFragments locates post-shaped sub-fragments on a thread page.
func postFragments(doc *goquery.Document) []*goquery.Selection {
	for _, sel := range []string{
		`[data-testid="discussion-post"]`,
		"div.discussion-post",
		"article",
	} {
		if frags := collect(doc, sel); len(frags) > 0 {
			return frags
		}
	}
	return nil
}

// notebookFragments locates top-level notebook fragments in a listing.
func notebookFragments(doc *goquery.Document) []*goquery.Selection {
	for _, sel := range []string{
		`[data-testid="notebook-item"]`,
		"li.kernel-item",
	} {
		if frags := collect(doc, sel); len(frags) > 0 {
			return frags
		}
	}

	var frags []*goquery.Selection
	doc.Find(`a[href*="/code/"], a[href*="/notebooks/"]`).Each(func(_ int, link *goquery.Selection) {
		frag := link.Closest("li, tr")
		if frag.Length() == 0 {
			frag = link.Parent()
		}
		if frag.Length() == 0 {
			frag = link
		}
		frags = append(frags, frag)
	})
	return frags
}

func collect(doc *goquery.Document, selector string) []*goquery.Selection {
	var frags []*goquery.Selection
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		frags = append(frags, sel)
	})
	return frags
}

// discussionLink returns the numeric topic id and href of the first
// id-bearing discussion link in the fragment.
func discussionLink(frag *goquery.Selection) (id, href string) {
	frag.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		h, _ := link.Attr("href")
		if m := discussionIDRe.FindStringSubmatch(h); m != nil {
			id, href = m[1], h
			return false
		}
		return true
	})
	return id, href
}

// notebookLink returns the href of the first notebook-shaped link.
func notebookLink(frag *goquery.Selection) string {
	for _, sel := range []string{
		`a[href*="/code/"]`,
		`a[href*="/notebooks/"]`,
		"a[href]",
	} {
		if href, ok := frag.Find(sel).First().Attr("href"); ok && href != "" && href != "#" {
			return href
		}
	}
	return ""
}

// urlTail returns the last non-empty path segment of a link.
func urlTail(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}

// notebookAuthorFromPath reads the author from a /<user>/<slug> link.
func notebookAuthorFromPath(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return AuthorUnknown
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) >= 2 {
		author := segments[len(segments)-2]
		switch author {
		case "code", "notebooks", "c", "competitions":
		default:
			return author
		}
	}
	return AuthorUnknown
}

// resolveURL makes href absolute against the listing's base URL.
func resolveURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

// detectLanguage scans fragment text for a known notebook language tag.
func detectLanguage(frag *goquery.Selection) string {
	text := " " + strings.ToLower(frag.Text()) + " "
	for tag, lang := range map[string]string{
		" python ":  "python",
		" r ":       "r",
		" julia ":   "julia",
		" sqlite ":  "sqlite",
		" jupyter ": "python",
	} {
		if strings.Contains(text, tag) {
			return lang
		}
	}
	return ""
}
