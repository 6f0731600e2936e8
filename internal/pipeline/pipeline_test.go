package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type record struct {
	ID    string
	Title string
}

func TestRequiredIDDropsEmpty(t *testing.T) {
	p := New[record](testLogger)
	p.Use(RequiredID[record]{Key: func(r *record) string { return r.ID }})

	out := p.Run([]record{
		{ID: "1", Title: "kept"},
		{ID: "", Title: "dropped"},
		{ID: "  ", Title: "dropped too"},
		{ID: "2", Title: "kept"},
	})

	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0].ID != "1" || out[1].ID != "2" {
		t.Errorf("wrong records survived: %+v", out)
	}
}

func TestDedupKeepsFirstOccurrence(t *testing.T) {
	p := New[record](testLogger)
	p.Use(&Dedup[record]{Key: func(r *record) string { return r.ID }})

	out := p.Run([]record{
		{ID: "1", Title: "first"},
		{ID: "1", Title: "second"},
		{ID: "2", Title: "third"},
	})

	if len(out) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out))
	}
	if out[0].Title != "first" {
		t.Errorf("dedup must keep the first occurrence, got %q", out[0].Title)
	}
}

func TestTransformMutatesInPlace(t *testing.T) {
	p := New[record](testLogger)
	p.Use(Transform[record]{Label: "trim", Fn: func(r *record) {
		r.Title = strings.TrimSpace(r.Title)
	}})

	out := p.Run([]record{{ID: "1", Title: "  padded  "}})
	if len(out) != 1 || out[0].Title != "padded" {
		t.Errorf("transform not applied: %+v", out)
	}
}

func TestChainOrder(t *testing.T) {
	p := New[record](testLogger)
	p.Use(RequiredID[record]{Key: func(r *record) string { return r.ID }})
	p.Use(&Dedup[record]{Key: func(r *record) string { return r.ID }})
	p.Use(Transform[record]{Label: "upper", Fn: func(r *record) {
		r.Title = strings.ToUpper(r.Title)
	}})

	if p.Len() != 3 {
		t.Fatalf("expected 3 processors, got %d", p.Len())
	}

	out := p.Run([]record{
		{ID: "", Title: "anonymous"},
		{ID: "1", Title: "a"},
		{ID: "1", Title: "b"},
	})

	if len(out) != 1 || out[0].Title != "A" {
		t.Errorf("unexpected chain output: %+v", out)
	}
}

type failing struct{}

func (failing) Name() string { return "failing" }

func (failing) Process(r *record) (*record, error) {
	if r.ID == "bad" {
		return nil, errors.New("boom")
	}
	return r, nil
}

func TestProcessorErrorDropsRecordOnly(t *testing.T) {
	p := New[record](testLogger)
	p.Use(failing{})

	out := p.Run([]record{
		{ID: "ok"},
		{ID: "bad"},
		{ID: "ok2"},
	})

	if len(out) != 2 {
		t.Fatalf("expected error to drop one record, got %d survivors", len(out))
	}
}

func TestEmptyInput(t *testing.T) {
	p := New[record](testLogger)
	out := p.Run(nil)
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", out)
	}
}
