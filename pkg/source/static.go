package source

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// StaticFetcher serves attestations held in memory, keyed by schema.
type StaticFetcher struct {
	mu      sync.RWMutex
	schemas map[string][]Attestation
	calls   int
}

// NewStaticFetcher creates a fetcher serving atts under schemaID.
func NewStaticFetcher(schemaID string, atts ...Attestation) *StaticFetcher {
	f := &StaticFetcher{schemas: make(map[string][]Attestation)}
	f.Add(schemaID, atts...)
	return f
}

// Add appends attestations to schemaID.
func (f *StaticFetcher) Add(schemaID string, atts ...Attestation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(schemaID)
	f.schemas[key] = append(f.schemas[key], atts...)
}

// FetchAttestations returns a sorted copy of the schema's attestations.
// Unknown schemas yield an empty slice.
func (f *StaticFetcher) FetchAttestations(ctx context.Context, schemaID string) ([]Attestation, error) {
	if err := ctx.Err(); err != nil {
		return nil, FetchError(schemaID, err)
	}

	f.mu.Lock()
	f.calls++
	out := slices.Clone(f.schemas[strings.ToLower(schemaID)])
	f.mu.Unlock()

	SortAttestations(out)
	return out, nil
}

// Calls returns how many times FetchAttestations has been called.
func (f *StaticFetcher) Calls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls
}
