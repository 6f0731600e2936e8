// Package pipeline post-processes assembled records before they enter
// the scrape result. Both the markup path and the API path feed their
// records through the same chain, so the orchestrator only ever sees one
// canonical shape.
package pipeline

import (
	"log/slog"
	"strings"
)

// Processor transforms a record. Return nil to drop the record.
type Processor[T any] interface {
	// Name returns the processor's identifier.
	Name() string

	// Process transforms a record. Return nil to drop it.
	Process(rec *T) (*T, error)
}

// Pipeline chains processors together over one record type.
type Pipeline[T any] struct {
	processors []Processor[T]
	logger     *slog.Logger
}

// New creates a new Pipeline.
func New[T any](logger *slog.Logger) *Pipeline[T] {
	return &Pipeline[T]{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a processor to the chain.
func (p *Pipeline[T]) Use(proc Processor[T]) {
	p.processors = append(p.processors, proc)
	p.logger.Debug("processor added", "name", proc.Name(), "position", len(p.processors))
}

// Run passes every record through the chain in order. Dropped records
// are silently removed; a processor error drops the record and is
// logged, never propagated.
func (p *Pipeline[T]) Run(recs []T) []T {
	out := make([]T, 0, len(recs))

	for i := range recs {
		rec := &recs[i]
		dropped := false

		for _, proc := range p.processors {
			next, err := proc.Process(rec)
			if err != nil {
				p.logger.Warn("record dropped", "stage", proc.Name(), "error", err)
				dropped = true
				break
			}
			if next == nil {
				p.logger.Debug("record dropped", "stage", proc.Name())
				dropped = true
				break
			}
			rec = next
		}

		if !dropped {
			out = append(out, *rec)
		}
	}

	return out
}

// Len returns the number of processors in the chain.
func (p *Pipeline[T]) Len() int {
	return len(p.processors)
}

// --- Built-in Processors ---

// RequiredID drops records whose identity key is empty.
type RequiredID[T any] struct {
	Key func(*T) string
}

func (m RequiredID[T]) Name() string { return "required_id" }

func (m RequiredID[T]) Process(rec *T) (*T, error) {
	if strings.TrimSpace(m.Key(rec)) == "" {
		return nil, nil
	}
	return rec, nil
}

// Dedup drops records repeating an already-seen identity key.
type Dedup[T any] struct {
	Key  func(*T) string
	seen map[string]struct{}
}

func (m *Dedup[T]) Name() string { return "dedup" }

func (m *Dedup[T]) Process(rec *T) (*T, error) {
	if m.seen == nil {
		m.seen = make(map[string]struct{})
	}
	key := m.Key(rec)
	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return rec, nil
}

// Transform applies a named in-place mutation (trim, clamp, default).
type Transform[T any] struct {
	Label string
	Fn    func(*T)
}

func (m Transform[T]) Name() string { return m.Label }

func (m Transform[T]) Process(rec *T) (*T, error) {
	m.Fn(rec)
	return rec, nil
}
