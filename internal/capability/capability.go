// Package capability defines the small injectable collaborator interfaces
// the engine accepts but does not implement beyond trivial defaults
// (spec.md §9): a tokenizer, an entity extractor, and an embedding
// provider. Concrete tokenizer/CJK plug-ins, entity-extraction models, and
// embedding network clients are out of scope (spec.md §1); only the
// interfaces and no-op defaults live here.
package capability

import "strings"

// Tokenizer splits content into lexical tokens. The engine's own lexical
// search goes through SQLite FTS5 directly; this capability exists for
// collaborators that need the same tokenization the engine would use for,
// e.g., entity-candidate extraction.
type Tokenizer interface {
	Tokenize(content string) []string
}

// EntityExtractor pulls entity tokens out of memory content, feeding the
// entity-relation bookkeeping in spec.md §4.8.
type EntityExtractor interface {
	Extract(content string) []string
}

// EmbeddingProvider returns a fixed-dimension embedding for a string.
// Spec.md §1 treats concrete embedding providers (network clients) as out
// of scope; this interface exists so a caller can supply one without the
// engine depending on any particular backend.
type EmbeddingProvider interface {
	Embed(content string) ([]float32, error)
}

// WhitespaceTokenizer is the trivial default Tokenizer: split on
// whitespace, lowercase.
type WhitespaceTokenizer struct{}

func (WhitespaceTokenizer) Tokenize(content string) []string {
	fields := strings.Fields(strings.ToLower(content))
	return fields
}

// NoopEntityExtractor is the trivial default EntityExtractor: it extracts
// no entities, so the engine functions with graph expansion effectively
// disabled until a real extractor is supplied.
type NoopEntityExtractor struct{}

func (NoopEntityExtractor) Extract(content string) []string {
	return nil
}

// NilEmbeddingProvider is never called by the core engine (spec.md §4.7's
// pipeline is lexical+graph only) but is offered as the zero-value default
// for callers that accept this capability without supplying one.
type NilEmbeddingProvider struct{}

func (NilEmbeddingProvider) Embed(content string) ([]float32, error) {
	return nil, nil
}
