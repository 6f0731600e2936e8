package types

import (
	"encoding/json"
	"time"
)

// Sentinel values substituted when a field cannot be extracted.
// The result stays schema-complete; consumers never see null.
const (
	DescriptionNotFound = "No description available"
	RewardNotFound      = "Prize information not available"
	EvaluationNotFound  = "Evaluation details not available"
	LanguageUnknown     = "unknown"
)

// CompetitionOverview holds the overview section of a competition page.
// Immutable once constructed; failed extractions carry sentinel text.
type CompetitionOverview struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Timeline    map[string]string `json:"timeline"`
	Reward      string            `json:"reward"`
	Evaluation  string            `json:"evaluation"`
	URL         string            `json:"url"`
}

// Post is a single post inside a discussion thread.
type Post struct {
	Author  string `json:"author"`
	Content string `json:"content"`
	Date    string `json:"date"`
}

// Thread is one discussion thread. ID is the provider's numeric topic id
// and is required; fragments without one never become a Thread.
type Thread struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	ReplyCount int    `json:"replyCount"`
	VoteCount  int    `json:"voteCount"`
	URL        string `json:"url"`
	Posts      []Post `json:"posts"`
}

// Notebook is one competition notebook/kernel listing entry.
type Notebook struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Votes       int    `json:"votes"`
	URL         string `json:"url"`
	LastRunTime string `json:"lastRunTime,omitempty"`
	Language    string `json:"language"`
}

// ScrapeResult is the assembled output of one full scrape. It is handed
// to collaborators by value and safe to serialize verbatim.
type ScrapeResult struct {
	Competition       CompetitionOverview `json:"competition"`
	DiscussionThreads []Thread            `json:"discussionThreads"`
	Notebooks         []Notebook          `json:"notebooks"`
	ScrapedAt         string              `json:"scrapedAt"`
}

// NewScrapeResult stamps the result with the generation time. Thread and
// notebook slices are never nil so the JSON shape is stable.
func NewScrapeResult(overview CompetitionOverview, threads []Thread, notebooks []Notebook) *ScrapeResult {
	if threads == nil {
		threads = []Thread{}
	}
	if notebooks == nil {
		notebooks = []Notebook{}
	}
	return &ScrapeResult{
		Competition:       overview,
		DiscussionThreads: threads,
		Notebooks:         notebooks,
		ScrapedAt:         time.Now().Format(time.RFC3339),
	}
}

// ToJSON serializes the result with indentation for file output.
func (r *ScrapeResult) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
