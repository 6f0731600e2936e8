package storage

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/1984akg/kaggle-competition-scraper3/internal/report"
	"github.com/1984akg/kaggle-competition-scraper3/internal/types"
)

// FileStore writes a scrape result to the output directory as a JSON
// mirror of the result schema plus optional Markdown and CSV companions.
// File names are keyed by the competition slug.
type FileStore struct {
	outputDir string
	formats   map[string]bool
	logger    *slog.Logger
	written   []string
}

// NewFileStore creates a file store. formats selects which companions
// to write ("json", "markdown", "csv"); an empty list means JSON only.
func NewFileStore(outputDir string, formats []string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("create output dir: %w", err)}
	}

	enabled := make(map[string]bool, len(formats))
	for _, f := range formats {
		enabled[f] = true
	}
	if len(enabled) == 0 {
		enabled["json"] = true
	}

	return &FileStore{
		outputDir: outputDir,
		formats:   enabled,
		logger:    logger.With("component", "file_store"),
	}, nil
}

func (s *FileStore) Name() string { return "file" }

// Written lists the paths produced so far, in write order.
func (s *FileStore) Written() []string { return s.written }

func (s *FileStore) Save(result *types.ScrapeResult) error {
	slug := result.Competition.ID
	if slug == "" {
		slug = "competition"
	}

	if s.formats["json"] {
		if err := s.saveJSON(slug, result); err != nil {
			return err
		}
	}
	if s.formats["markdown"] {
		if err := s.saveMarkdown(slug, result); err != nil {
			return err
		}
	}
	if s.formats["csv"] {
		if err := s.saveCSV(slug, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) Close() error {
	s.logger.Info("file store closed", "files", len(s.written))
	return nil
}

func (s *FileStore) saveJSON(slug string, result *types.ScrapeResult) error {
	data, err := result.ToJSON()
	if err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("encode JSON: %w", err)}
	}
	path := filepath.Join(s.outputDir, slug+"_data.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("write %s: %w", path, err)}
	}
	s.written = append(s.written, path)
	s.logger.Info("JSON written", "path", path)
	return nil
}

func (s *FileStore) saveMarkdown(slug string, result *types.ScrapeResult) error {
	path := filepath.Join(s.outputDir, slug+"_report.md")
	if err := os.WriteFile(path, []byte(report.Render(result)), 0o644); err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("write %s: %w", path, err)}
	}
	s.written = append(s.written, path)
	s.logger.Info("Markdown report written", "path", path)
	return nil
}

func (s *FileStore) saveCSV(slug string, result *types.ScrapeResult) error {
	threadsPath := filepath.Join(s.outputDir, slug+"_threads.csv")
	if err := s.writeCSV(threadsPath, threadRows(result.DiscussionThreads)); err != nil {
		return err
	}

	notebooksPath := filepath.Join(s.outputDir, slug+"_notebooks.csv")
	return s.writeCSV(notebooksPath, notebookRows(result.Notebooks))
}

func (s *FileStore) writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("create %s: %w", path, err)}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("write %s: %w", path, err)}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("flush %s: %w", path, err)}
	}

	s.written = append(s.written, path)
	s.logger.Info("CSV written", "path", path, "rows", len(rows)-1)
	return nil
}

func threadRows(threads []types.Thread) [][]string {
	rows := make([][]string, 0, len(threads)+1)
	rows = append(rows, []string{"id", "title", "author", "replyCount", "voteCount", "url"})
	for _, t := range threads {
		rows = append(rows, []string{
			t.ID,
			t.Title,
			t.Author,
			strconv.Itoa(t.ReplyCount),
			strconv.Itoa(t.VoteCount),
			t.URL,
		})
	}
	return rows
}

func notebookRows(notebooks []types.Notebook) [][]string {
	rows := make([][]string, 0, len(notebooks)+1)
	rows = append(rows, []string{"id", "title", "author", "votes", "language", "url"})
	for _, n := range notebooks {
		rows = append(rows, []string{
			n.ID,
			n.Title,
			n.Author,
			strconv.Itoa(n.Votes),
			n.Language,
			n.URL,
		})
	}
	return rows
}
