package scraper

import (
	"context"
	"errors"

	"github.com/1984akg/kaggle-competition-scraper3/internal/cascade"
	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

// Section stage implementations. Each is a bulkhead: all failures,
// panics included, degrade into an empty or placeholder section.

// scrapeOverview extracts the overview record from the competition page.
// A failed fetch or parse yields the placeholder record; a failed field
// yields that field's sentinel. The record is always schema-complete.
func (s *Scraper) scrapeOverview(ctx context.Context, slug string) (overview types.CompetitionOverview) {
	pageURL := s.competitionURL(slug)
	overview = placeholderOverview(slug, pageURL)
	defer s.guard("overview")

	resp, err := s.client.Get(ctx, pageURL, true, "h1")
	if err != nil {
		s.logger.Warn("overview fetch failed", "url", pageURL, "error", err)
		return overview
	}
	doc, err := resp.Document()
	if err != nil {
		s.logger.Warn("overview parse failed", "url", pageURL, "error", err)
		return overview
	}

	root := doc.Selection

	if title, ok := s.engine.Extract(root, cascade.FieldTitle); ok {
		overview.Title = title
	}
	if desc, ok := s.engine.Extract(root, cascade.FieldDescription); ok {
		overview.Description = desc
	}
	if reward, ok := s.engine.Extract(root, cascade.FieldReward); ok {
		overview.Reward = reward
	}
	if eval, ok := s.engine.Extract(root, cascade.FieldEvaluation); ok {
		overview.Evaluation = eval
	}
	overview.Timeline = s.engine.ExtractTimeline(root)

	s.logger.Info("overview scraped", "slug", slug, "title", overview.Title)
	return overview
}

// scrapeDiscussions extracts thread records. The API adapter is
// preferred when it exposes threads; otherwise the discussion listing is
// fetched (render mode preferred) and assembled fragment by fragment.
func (s *Scraper) scrapeDiscussions(ctx context.Context, slug string) (threads []types.Thread) {
	threads = []types.Thread{}
	defer s.guard("discussions")

	max := s.cfg.Scrape.MaxThreads
	if max <= 0 {
		return threads
	}

	if s.api.Available() {
		apiThreads, err := s.api.ListThreads(ctx, slug, max)
		if err == nil {
			return apiThreads
		}
		if !errors.Is(err, types.ErrAPIUnsupported) {
			s.logger.Warn("API thread listing failed, falling back to markup", "error", err)
		}
	}

	listURL := s.competitionURL(slug) + "/discussion"
	resp, err := s.fetchListing(ctx, listURL, `a[href*="/discussion"]`)
	if err != nil {
		s.logger.Warn("discussion listing fetch failed", "url", listURL, "error", err)
		return threads
	}
	doc, err := resp.Document()
	if err != nil {
		s.logger.Warn("discussion listing parse failed", "url", listURL, "error", err)
		return threads
	}

	threads = s.assembler.Threads(ctx, doc, s.baseURL(), max)
	s.logger.Info("discussions scraped", "slug", slug, "count", len(threads))
	return threads
}

// scrapeNotebooks extracts notebook records, preferring the API adapter
// and degrading to the markup path.
func (s *Scraper) scrapeNotebooks(ctx context.Context, slug string) (notebooks []types.Notebook) {
	notebooks = []types.Notebook{}
	defer s.guard("notebooks")

	max := s.cfg.Scrape.MaxNotebooks
	if max <= 0 {
		return notebooks
	}

	if s.api.Available() {
		apiNotebooks, err := s.api.ListNotebooks(ctx, slug, max)
		if err == nil {
			return apiNotebooks
		}
		s.logger.Warn("API notebook listing failed, falling back to markup", "error", err)
	}

	listURL := s.competitionURL(slug) + "/code"
	resp, err := s.fetchListing(ctx, listURL, `a[href*="/code/"]`)
	if err != nil {
		s.logger.Warn("notebook listing fetch failed", "url", listURL, "error", err)
		return notebooks
	}
	doc, err := resp.Document()
	if err != nil {
		s.logger.Warn("notebook listing parse failed", "url", listURL, "error", err)
		return notebooks
	}

	notebooks = s.assembler.Notebooks(doc, s.baseURL(), max)
	s.logger.Info("notebooks scraped", "slug", slug, "count", len(notebooks))
	return notebooks
}

// fetchListing retrieves a listing page in render mode, asking the
// browser to expand lazy-loaded items before reading the markup.
func (s *Scraper) fetchListing(ctx context.Context, listURL, waitFor string) (*types.Response, error) {
	req, err := types.NewRequest(listURL)
	if err != nil {
		return nil, err
	}
	req.Render = true
	req.WaitFor = waitFor
	req.Expand = true
	return s.client.Fetch(ctx, req)
}

// guard converts a stage panic into a degraded section. Deferred named
// returns keep whatever the stage had produced before panicking.
func (s *Scraper) guard(stage string) {
	if r := recover(); r != nil {
		s.logger.Error("stage panic contained", "stage", stage, "panic", r)
	}
}

// placeholderOverview is the schema-complete stand-in used until (and
// unless) real fields are extracted.
func placeholderOverview(slug, pageURL string) types.CompetitionOverview {
	return types.CompetitionOverview{
		ID:          slug,
		Title:       slug,
		Description: types.DescriptionNotFound,
		Timeline:    map[string]string{},
		Reward:      types.RewardNotFound,
		Evaluation:  types.EvaluationNotFound,
		URL:         pageURL,
	}
}
