// Package cascade implements the selector cascade engine: per-field
// ordered lists of structural queries tried until one yields a non-empty
// match, with terminal textual heuristics. The engine never returns an
// error; absence of a match is reported as a sentinel miss.
package cascade

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/1984akg/kaggle-competition-scraper3/internal/observability"
)

// Field names a value the cascade knows how to locate.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldReward      Field = "reward"
	FieldEvaluation  Field = "evaluation"
	FieldAuthor      Field = "author"
	FieldVoteCount   Field = "voteCount"
	FieldReplyCount  Field = "replyCount"
	FieldContent     Field = "content"
	FieldDate        Field = "date"
)

type queryKind int

const (
	kindCSS queryKind = iota
	kindXPath
	kindMeta
	kindPageTitle
	kindRegex
)

// query is one tier of a field's cascade. Tiers are ordered from the
// most specific/stable markup shape to the most generic.
type query struct {
	kind     queryKind
	selector string // CSS selector or XPath expression
	attr     string // attribute to read; empty means element text
	pattern  string // regex source for kindRegex
}

// fieldSpec declares the full cascade for one field.
type fieldSpec struct {
	queries []query
	// markup matches are normalized to portable markdown text
	normalize bool
	// prose enables the long-text sibling heuristic as the terminal tier
	prose bool
}

// The page markup has changed class names and structure across observed
// revisions; each cascade therefore ends in a generic tier (bare tag,
// page <title>, regex) so extraction degrades instead of breaking.
var fieldSpecs = map[Field]fieldSpec{
	FieldTitle: {
		queries: []query{
			{kind: kindCSS, selector: `h1[data-testid="competition-name"]`},
			{kind: kindCSS, selector: `h1.competition-header__title`},
			{kind: kindMeta, selector: "og:title"},
			{kind: kindCSS, selector: "h1"},
			{kind: kindPageTitle},
		},
	},
	FieldDescription: {
		queries: []query{
			{kind: kindCSS, selector: `div[data-testid="competition-description"]`},
			{kind: kindCSS, selector: `div.competition-overview__description`},
			{kind: kindCSS, selector: `#description .markdown-converter__text`},
			{kind: kindMeta, selector: "description"},
			{kind: kindXPath, selector: `//section[contains(@class,"description")]`},
		},
		normalize: true,
		prose:     true,
	},
	FieldReward: {
		queries: []query{
			{kind: kindCSS, selector: `[data-testid="prize-amount"]`},
			{kind: kindCSS, selector: `.competition-prizes__amount`},
			{kind: kindXPath, selector: `//h2[contains(.,"Prizes")]/following-sibling::*[1]`},
			{kind: kindRegex, pattern: `\$[0-9][0-9,]*(?:\.[0-9]+)?`},
		},
	},
	FieldEvaluation: {
		queries: []query{
			{kind: kindCSS, selector: `div[data-testid="competition-evaluation"]`},
			{kind: kindCSS, selector: `#evaluation .markdown-converter__text`},
			{kind: kindXPath, selector: `//h2[contains(.,"Evaluation")]/following-sibling::*[1]`},
		},
		normalize: true,
		prose:     true,
	},
	FieldAuthor: {
		queries: []query{
			{kind: kindCSS, selector: `[data-testid="author-name"]`},
			{kind: kindCSS, selector: `a.avatar__name`},
			{kind: kindCSS, selector: `a[href^="/users/"]`},
			{kind: kindCSS, selector: `span.username`},
		},
	},
	FieldVoteCount: {
		queries: []query{
			{kind: kindCSS, selector: `[data-testid="vote-count"]`},
			{kind: kindCSS, selector: `span.vote-button__vote-count`},
			{kind: kindCSS, selector: `button[aria-label*="vote"]`, attr: "aria-label"},
		},
	},
	FieldReplyCount: {
		queries: []query{
			{kind: kindCSS, selector: `[data-testid="reply-count"]`},
			{kind: kindCSS, selector: `span.discussion-item__replies`},
			{kind: kindCSS, selector: `[aria-label*="comment"]`, attr: "aria-label"},
		},
	},
	FieldContent: {
		queries: []query{
			{kind: kindCSS, selector: `div[data-testid="discussion-post-content"]`},
			{kind: kindCSS, selector: `.markdown-converter__text`},
			{kind: kindCSS, selector: "article"},
		},
		normalize: true,
		prose:     true,
	},
	FieldDate: {
		queries: []query{
			{kind: kindCSS, selector: "time", attr: "datetime"},
			{kind: kindCSS, selector: `span[data-testid="post-date"]`},
			{kind: kindCSS, selector: "time"},
		},
	},
}

// Engine runs field cascades against markup fragments.
type Engine struct {
	logger     *slog.Logger
	normalizer *Normalizer
	metrics    *observability.Metrics
	regexCache map[string]*regexp.Regexp
}

// New creates a cascade engine. metrics may be nil.
func New(logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		logger:     logger.With("component", "cascade"),
		normalizer: NewNormalizer(),
		metrics:    metrics,
		regexCache: make(map[string]*regexp.Regexp),
	}
}

// Extract locates a field inside the given markup root. The boolean is
// false only when every tier, structural and heuristic, came up empty;
// the caller substitutes its per-field sentinel in that case.
func (e *Engine) Extract(root *goquery.Selection, field Field) (string, bool) {
	spec, ok := fieldSpecs[field]
	if !ok {
		e.logger.Warn("unknown field", "field", field)
		return "", false
	}

	for i, q := range spec.queries {
		val := e.runQuery(root, q, spec.normalize)
		if val != "" {
			e.countHit(i)
			return val, true
		}
	}

	if spec.prose {
		if val := e.proseFallback(root, spec.normalize); val != "" {
			e.countHeuristic()
			return val, true
		}
	}

	e.countMiss()
	e.logger.Debug("field not found", "field", field)
	return "", false
}

// ExtractInt locates a numeric field. A structural match is scanned for
// its first integer token; failing that, the whole fragment text is
// scanned. Absence yields 0, never an error.
func (e *Engine) ExtractInt(root *goquery.Selection, field Field) int {
	if val, ok := e.Extract(root, field); ok {
		if n, ok := firstInt(val); ok {
			return n
		}
	}
	if n, ok := firstInt(root.Text()); ok {
		return n
	}
	return 0
}

// runQuery evaluates a single tier; ties among multiple matched elements
// take the first in document order.
func (e *Engine) runQuery(root *goquery.Selection, q query, normalize bool) string {
	switch q.kind {
	case kindCSS:
		sel := root.Find(q.selector).First()
		if sel.Length() == 0 {
			return ""
		}
		if q.attr != "" {
			val, _ := sel.Attr(q.attr)
			return strings.TrimSpace(val)
		}
		if normalize {
			if html, err := sel.Html(); err == nil {
				return e.normalizer.Normalize(html)
			}
		}
		return strings.TrimSpace(sel.Text())

	case kindXPath:
		node := e.xpathFirst(root, q.selector)
		if node == nil {
			return ""
		}
		if normalize {
			return e.normalizer.Normalize(htmlquery.OutputHTML(node, false))
		}
		return strings.TrimSpace(htmlquery.InnerText(node))

	case kindMeta:
		val := metaContent(root, q.selector)
		return strings.TrimSpace(val)

	case kindPageTitle:
		title := strings.TrimSpace(root.Find("title").First().Text())
		return strings.TrimSpace(strings.TrimSuffix(title, " | Kaggle"))

	case kindRegex:
		re := e.getOrCompile(q.pattern)
		if re == nil {
			return ""
		}
		return strings.TrimSpace(re.FindString(root.Text()))
	}
	return ""
}

// xpathFirst evaluates an XPath expression against the selection's first
// node, returning the first matched node in document order.
func (e *Engine) xpathFirst(root *goquery.Selection, expr string) *html.Node {
	if len(root.Nodes) == 0 {
		return nil
	}
	nodes, err := htmlquery.QueryAll(root.Nodes[0], expr)
	if err != nil {
		e.logger.Warn("invalid xpath", "selector", expr, "error", err)
		return nil
	}
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// metaContent reads a <meta> tag's content by name or property.
func metaContent(root *goquery.Selection, name string) string {
	for _, sel := range []string{
		`meta[name="` + name + `"]`,
		`meta[property="` + name + `"]`,
	} {
		if content, ok := root.Find(sel).First().Attr("content"); ok && content != "" {
			return content
		}
	}
	return ""
}

// getOrCompile returns a cached compiled regex, or nil on a bad pattern.
func (e *Engine) getOrCompile(pattern string) *regexp.Regexp {
	if re, ok := e.regexCache[pattern]; ok {
		return re
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		e.logger.Warn("invalid regex", "pattern", pattern, "error", err)
		return nil
	}
	e.regexCache[pattern] = re
	return re
}

func (e *Engine) countHit(tier int) {
	if e.metrics != nil {
		e.metrics.CascadeStructuralHits.Add(1)
		if tier > 0 {
			e.metrics.CascadeFallbackHits.Add(1)
		}
	}
}

func (e *Engine) countHeuristic() {
	if e.metrics != nil {
		e.metrics.CascadeHeuristicHits.Add(1)
	}
}

func (e *Engine) countMiss() {
	if e.metrics != nil {
		e.metrics.CascadeMisses.Add(1)
	}
}
