// Package report renders a scrape result as a Markdown document with a
// fixed section order: overview header, description, evaluation,
// discussion threads, notebooks, generation footer.
package report

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

const (
	maxThreadsShown   = 10
	maxNotebooksShown = 20
	maxPostsShown     = 3
	postExcerptLen    = 300
)

// Render produces the Markdown report for one scrape result.
func Render(result *types.ScrapeResult) string {
	var b strings.Builder
	comp := result.Competition

	title := comp.Title
	if title == "" {
		title = "Competition Report"
	}

	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("## Competition Overview\n\n")
	fmt.Fprintf(&b, "**Competition ID:** %s\n", orNA(comp.ID))
	fmt.Fprintf(&b, "**URL:** %s\n\n", orNA(comp.URL))

	b.WriteString("### Description\n")
	fmt.Fprintf(&b, "%s\n\n", orDefault(comp.Description, types.DescriptionNotFound))

	b.WriteString("### Evaluation\n")
	fmt.Fprintf(&b, "%s\n\n", orDefault(comp.Evaluation, types.EvaluationNotFound))

	if len(comp.Timeline) > 0 {
		b.WriteString("### Timeline\n")
		for _, milestone := range sortedKeys(comp.Timeline) {
			fmt.Fprintf(&b, "- **%s:** %s\n", milestone, comp.Timeline[milestone])
		}
		b.WriteString("\n")
	}

	threads := result.DiscussionThreads
	fmt.Fprintf(&b, "## Discussion Threads (%d threads)\n\n", len(threads))
	for i, thread := range threads {
		if i >= maxThreadsShown {
			break
		}
		writeThread(&b, thread)
	}

	notebooks := result.Notebooks
	fmt.Fprintf(&b, "## Notebooks (%d notebooks)\n\n", len(notebooks))
	for i, nb := range notebooks {
		if i >= maxNotebooksShown {
			break
		}
		fmt.Fprintf(&b, "### [%s](%s)\n", orDefault(nb.Title, "Untitled"), orDefault(nb.URL, "#"))
		fmt.Fprintf(&b, "- **Author:** %s\n", orDefault(nb.Author, "Unknown"))
		fmt.Fprintf(&b, "- **Votes:** %d\n", nb.Votes)
		fmt.Fprintf(&b, "- **Language:** %s\n\n", orDefault(nb.Language, types.LanguageUnknown))
	}

	fmt.Fprintf(&b, "---\n*Report generated on %s*\n", orDefault(result.ScrapedAt, "Unknown date"))
	return b.String()
}

func writeThread(b *strings.Builder, thread types.Thread) {
	fmt.Fprintf(b, "### [%s](%s)\n", orDefault(thread.Title, "Untitled"), orDefault(thread.URL, "#"))
	fmt.Fprintf(b, "- **Author:** %s\n", orDefault(thread.Author, "Unknown"))
	fmt.Fprintf(b, "- **Replies:** %d\n", thread.ReplyCount)
	fmt.Fprintf(b, "- **Votes:** %d\n\n", thread.VoteCount)

	for i, post := range thread.Posts {
		if i >= maxPostsShown {
			break
		}
		excerpt := truncate(post.Content, postExcerptLen)
		author := orDefault(post.Author, "Unknown")
		if post.Date != "" {
			fmt.Fprintf(b, "> **%s** (%s): %s\n\n", author, post.Date, excerpt)
		} else {
			fmt.Fprintf(b, "> **%s**: %s\n\n", author, excerpt)
		}
	}
}

func orNA(s string) string {
	return orDefault(s, "N/A")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
