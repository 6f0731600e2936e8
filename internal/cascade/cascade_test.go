package cascade

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func makeDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse test markup: %v", err)
	}
	return doc
}

const overviewHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Titanic - Machine Learning from Disaster | Kaggle</title>
    <meta property="og:title" content="Titanic - Machine Learning from Disaster">
</head>
<body>
    <h1 data-testid="competition-name">Titanic - Machine Learning from Disaster</h1>
    <div data-testid="competition-description">
        <p>Use machine learning to create a model that predicts which passengers survived the Titanic shipwreck. This is a beginner-friendly competition with an active community.</p>
    </div>
    <span data-testid="prize-amount">$10,000</span>
</body>
</html>`

func TestExtractFirstTier(t *testing.T) {
	e := New(testLogger, nil)
	doc := makeDoc(t, overviewHTML)

	title, ok := e.Extract(doc.Selection, FieldTitle)
	if !ok {
		t.Fatal("expected title hit")
	}
	if title != "Titanic - Machine Learning from Disaster" {
		t.Errorf("unexpected title: %q", title)
	}
}

func TestExtractFallsThroughTiers(t *testing.T) {
	e := New(testLogger, nil)

	// No purpose-built markers; the bare h1 tier should match.
	doc := makeDoc(t, `<html><body><h1>House Prices</h1></body></html>`)
	title, ok := e.Extract(doc.Selection, FieldTitle)
	if !ok || title != "House Prices" {
		t.Errorf("expected generic h1 hit, got %q ok=%v", title, ok)
	}

	// No h1 at all; the page <title> tier should match and strip the
	// site suffix.
	doc = makeDoc(t, `<html><head><title>House Prices | Kaggle</title></head><body></body></html>`)
	title, ok = e.Extract(doc.Selection, FieldTitle)
	if !ok || title != "House Prices" {
		t.Errorf("expected page title hit, got %q ok=%v", title, ok)
	}
}

func TestExtractMissIsNotAnError(t *testing.T) {
	e := New(testLogger, nil)
	doc := makeDoc(t, `<html><body><span>nothing relevant</span></body></html>`)

	if val, ok := e.Extract(doc.Selection, FieldTitle); ok {
		t.Errorf("expected miss, got %q", val)
	}
	if val, ok := e.Extract(doc.Selection, FieldReward); ok {
		t.Errorf("expected miss, got %q", val)
	}
}

func TestExtractRewardRegexTier(t *testing.T) {
	e := New(testLogger, nil)
	doc := makeDoc(t, `<html><body><p>Total prize pool of $25,000 across three tracks.</p></body></html>`)

	reward, ok := e.Extract(doc.Selection, FieldReward)
	if !ok {
		t.Fatal("expected regex tier hit")
	}
	if reward != "$25,000" {
		t.Errorf("unexpected reward: %q", reward)
	}
}

func TestProseFallback(t *testing.T) {
	e := New(testLogger, nil)
	long := strings.Repeat("A genuinely substantive sentence about the competition. ", 5)
	doc := makeDoc(t, `<html><body>
        <div class="nav">Home</div>
        <div class="blurb"><p>`+long+`</p></div>
    </body></html>`)

	desc, ok := e.Extract(doc.Selection, FieldDescription)
	if !ok {
		t.Fatal("expected prose heuristic hit")
	}
	if !strings.Contains(desc, "genuinely substantive") {
		t.Errorf("unexpected description: %q", desc)
	}
}

func TestProseFallbackIgnoresShortBlocks(t *testing.T) {
	e := New(testLogger, nil)
	doc := makeDoc(t, `<html><body><div>Sign in</div><p>Rules</p></body></html>`)

	if val, ok := e.Extract(doc.Selection, FieldDescription); ok {
		t.Errorf("expected miss for label-only markup, got %q", val)
	}
}

func TestExtractInt(t *testing.T) {
	e := New(testLogger, nil)

	doc := makeDoc(t, `<html><body><span data-testid="vote-count">1,234 votes</span></body></html>`)
	if n := e.ExtractInt(doc.Selection, FieldVoteCount); n != 1234 {
		t.Errorf("expected 1234, got %d", n)
	}

	// No structural match: the whole fragment text is scanned.
	doc = makeDoc(t, `<html><body><span>17 comments</span></body></html>`)
	if n := e.ExtractInt(doc.Selection, FieldReplyCount); n != 17 {
		t.Errorf("expected 17, got %d", n)
	}

	// Nothing numeric at all degrades to zero.
	doc = makeDoc(t, `<html><body><span>no numbers here</span></body></html>`)
	if n := e.ExtractInt(doc.Selection, FieldVoteCount); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}

func TestFirstInt(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"42", 42, true},
		{"1,234 votes", 1234, true},
		{"replies: 7", 7, true},
		{"none", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := firstInt(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("firstInt(%q) = %d,%v; want %d,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExtractTimeline(t *testing.T) {
	e := New(testLogger, nil)
	doc := makeDoc(t, `<html><body>
        <div><span>Start Date</span><time datetime="2024-01-01T00:00:00Z">Jan 1</time></div>
        <div><span>Final Submission</span><time datetime="2024-04-01T23:59:00Z">Apr 1</time></div>
        <time datetime="2024-02-01T00:00:00Z"></time>
    </body></html>`)

	timeline := e.ExtractTimeline(doc.Selection)
	if timeline == nil {
		t.Fatal("timeline must never be nil")
	}
	if timeline["Start Date"] != "2024-01-01T00:00:00Z" {
		t.Errorf("start date: %q", timeline["Start Date"])
	}
	if timeline["Final Submission"] != "2024-04-01T23:59:00Z" {
		t.Errorf("final submission: %q", timeline["Final Submission"])
	}
	// The unlabeled <time> has no milestone name and is skipped.
	if len(timeline) != 2 {
		t.Errorf("expected 2 milestones, got %d: %v", len(timeline), timeline)
	}
}

func TestExtractTimelineUnlabeledNeighborSkipped(t *testing.T) {
	e := New(testLogger, nil)
	// The bare <time> must not borrow the preceding milestone's container
	// text as its label.
	doc := makeDoc(t, `<html><body>
        <div><span>Merger Deadline</span><time datetime="2024-03-01T00:00:00Z">Mar 1</time></div>
        <time datetime="2024-03-15T00:00:00Z">Mar 15</time>
    </body></html>`)

	timeline := e.ExtractTimeline(doc.Selection)
	if len(timeline) != 1 {
		t.Fatalf("expected 1 milestone, got %d: %v", len(timeline), timeline)
	}
	if timeline["Merger Deadline"] != "2024-03-01T00:00:00Z" {
		t.Errorf("merger deadline: %v", timeline)
	}
}

func TestExtractTimelineEmpty(t *testing.T) {
	e := New(testLogger, nil)
	doc := makeDoc(t, `<html><body><p>no dates</p></body></html>`)

	timeline := e.ExtractTimeline(doc.Selection)
	if timeline == nil || len(timeline) != 0 {
		t.Errorf("expected empty non-nil map, got %v", timeline)
	}
}

func TestNormalizerStripsMarkup(t *testing.T) {
	n := NewNormalizer()
	out := n.Normalize(`<p>Hello <strong>world</strong></p>`)
	if strings.Contains(out, "<p>") || strings.Contains(out, "<strong>") {
		t.Errorf("markup leaked into normalized text: %q", out)
	}
	if !strings.Contains(out, "Hello") || !strings.Contains(out, "world") {
		t.Errorf("text content lost: %q", out)
	}
}
