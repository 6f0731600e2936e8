// Package assemble turns listing-page markup fragments into structured
// thread and notebook records. Fragments without a resolvable identity
// are rejected, never defaulted: downstream consumers index by id.
package assemble

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/1984akg/kaggle-competition-scraper3/internal/cascade"
	"github.com/1984akg/kaggle-competition-scraper3/internal/fetcher"
	"github.com/1984akg/kaggle-competition-scraper3/internal/observability"
	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

// discussionIDRe matches the numeric topic id in a discussion link, e.g.
// /competitions/titanic/discussion/12345 or /discussion/12345.
var discussionIDRe = regexp.MustCompile(`/discussion(?:/[^/]+)*?/(\d+)(?:[/?#]|$)`)

// AuthorUnknown stands in when no author can be extracted from a fragment.
const AuthorUnknown = "Unknown"

// Assembler builds records by orchestrating cascade calls over fragments.
type Assembler struct {
	client  *fetcher.Client
	engine  *cascade.Engine
	logger  *slog.Logger
	metrics *observability.Metrics

	// ItemDelay is slept between successive top-level fragments to stay
	// under the source's implicit rate limits. Zero disables it (tests).
	ItemDelay time.Duration

	// MaxPosts bounds the post sub-fetch per thread.
	MaxPosts int
}

// New creates an Assembler. metrics may be nil.
func New(client *fetcher.Client, engine *cascade.Engine, logger *slog.Logger, metrics *observability.Metrics) *Assembler {
	return &Assembler{
		client:  client,
		engine:  engine,
		logger:  logger.With("component", "assembler"),
		metrics: metrics,
	}
}

// Threads assembles up to max thread records from a discussion listing
// document. Rejected fragments are skipped silently; duplicate topic ids
// are processed once.
func (a *Assembler) Threads(ctx context.Context, doc *goquery.Document, base *url.URL, max int) []types.Thread {
	fragments := threadFragments(doc)
	seen := make(map[string]bool)
	threads := make([]types.Thread, 0, max)

	for _, frag := range fragments {
		if len(threads) >= max {
			break
		}
		t := a.Thread(ctx, frag, base)
		if t == nil {
			continue
		}
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		threads = append(threads, *t)

		if a.ItemDelay > 0 && len(threads) < max {
			time.Sleep(a.ItemDelay)
		}
	}

	return threads
}

// Thread builds one thread record from a listing fragment, including the
// secondary fetch of the thread's own page for posts. Returns nil when
// the fragment carries no resolvable numeric topic id.
func (a *Assembler) Thread(ctx context.Context, frag *goquery.Selection, base *url.URL) *types.Thread {
	id, href := discussionLink(frag)
	if id == "" {
		a.reject()
		return nil
	}

	threadURL := resolveURL(base, href)

	// Title comes from the id-bearing link's text; an empty title does
	// not reject the fragment — identity is the id, not the title.
	title := strings.TrimSpace(frag.Find(`a[href*="/discussion"]`).First().Text())
	if title == "" {
		title, _ = a.engine.Extract(frag, cascade.FieldTitle)
	}

	author, ok := a.engine.Extract(frag, cascade.FieldAuthor)
	if !ok {
		author = AuthorUnknown
	}

	t := &types.Thread{
		ID:         id,
		Title:      title,
		Author:     author,
		ReplyCount: a.engine.ExtractInt(frag, cascade.FieldReplyCount),
		VoteCount:  a.engine.ExtractInt(frag, cascade.FieldVoteCount),
		URL:        threadURL,
		Posts:      a.fetchPosts(ctx, threadURL),
	}

	if a.metrics != nil {
		a.metrics.ThreadsAssembled.Add(1)
	}
	return t
}

// fetchPosts retrieves and parses the thread detail page (plain mode;
// detail fetches are cheap follow-ups). Any failure yields an empty post
// list, never a discarded thread.
func (a *Assembler) fetchPosts(ctx context.Context, threadURL string) []types.Post {
	posts := []types.Post{}
	if a.MaxPosts <= 0 || threadURL == "" {
		return posts
	}

	resp, err := a.client.Get(ctx, threadURL, false, "")
	if err != nil {
		a.logger.Warn("thread detail fetch failed", "url", threadURL, "error", err)
		return posts
	}
	doc, err := resp.Document()
	if err != nil {
		a.logger.Warn("thread detail parse failed", "url", threadURL, "error", err)
		return posts
	}

	for _, frag := range postFragments(doc) {
		if len(posts) >= a.MaxPosts {
			break
		}
		content, ok := a.engine.Extract(frag, cascade.FieldContent)
		if !ok {
			continue
		}
		author, ok := a.engine.Extract(frag, cascade.FieldAuthor)
		if !ok {
			author = AuthorUnknown
		}
		date, _ := a.engine.Extract(frag, cascade.FieldDate)
		posts = append(posts, types.Post{
			Author:  author,
			Content: content,
			Date:    normalizeDate(date),
		})
	}

	return posts
}

// Notebooks assembles up to max notebook records from a code listing
// document.
func (a *Assembler) Notebooks(doc *goquery.Document, base *url.URL, max int) []types.Notebook {
	fragments := notebookFragments(doc)
	seen := make(map[string]bool)
	notebooks := make([]types.Notebook, 0, max)

	for _, frag := range fragments {
		if len(notebooks) >= max {
			break
		}
		n := a.Notebook(frag, base)
		if n == nil {
			continue
		}
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		notebooks = append(notebooks, *n)
	}

	return notebooks
}

// Notebook builds one notebook record from a listing fragment. The id is
// derived from the link URL's tail since the page supplies no explicit
// one; a fragment without a usable link is rejected.
func (a *Assembler) Notebook(frag *goquery.Selection, base *url.URL) *types.Notebook {
	href := notebookLink(frag)
	id := urlTail(href)
	if id == "" {
		a.reject()
		return nil
	}

	title := strings.TrimSpace(frag.Find(`a[href]`).First().Text())
	if title == "" {
		title, _ = a.engine.Extract(frag, cascade.FieldTitle)
	}

	author, ok := a.engine.Extract(frag, cascade.FieldAuthor)
	if !ok {
		author = notebookAuthorFromPath(href)
	}

	lastRun, _ := a.engine.Extract(frag, cascade.FieldDate)

	language := detectLanguage(frag)
	if language == "" {
		language = types.LanguageUnknown
	}

	n := &types.Notebook{
		ID:          id,
		Title:       title,
		Author:      author,
		Votes:       a.engine.ExtractInt(frag, cascade.FieldVoteCount),
		URL:         resolveURL(base, href),
		LastRunTime: normalizeDate(lastRun),
		Language:    language,
	}

	if a.metrics != nil {
		a.metrics.NotebooksAssembled.Add(1)
	}
	return n
}

func (a *Assembler) reject() {
	if a.metrics != nil {
		a.metrics.RecordsRejected.Add(1)
	}
}

// normalizeDate returns an ISO-8601 string when the value parses as a
// known timestamp shape, otherwise the provider-native string untouched.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	return raw
}
