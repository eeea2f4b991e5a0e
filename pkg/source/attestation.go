// Package source adapts attestation records from an indexer into the
// weighted edges the scoring engine consumes.
package source

import (
	"bytes"
	"context"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
)

// Attestation is one indexed claim that Attester vouches for Recipient.
type Attestation struct {
	UID       common.Hash
	Attester  account.Account
	Recipient account.Account
	Data      []byte   // ABI-encoded payload
	Weight    *float64 // Pre-decoded weight; when set, Data is not consulted
	Timestamp uint64
	Revoked   bool
}

// Fetcher retrieves the attestations recorded under a schema.
type Fetcher interface {
	FetchAttestations(ctx context.Context, schemaID string) ([]Attestation, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, schemaID string) ([]Attestation, error)

// FetchAttestations calls f.
func (f FetcherFunc) FetchAttestations(ctx context.Context, schemaID string) ([]Attestation, error) {
	return f(ctx, schemaID)
}

// SortAttestations orders attestations by timestamp, then UID, so replaying
// them is reproducible regardless of how the backend returned them.
func SortAttestations(atts []Attestation) {
	slices.SortStableFunc(atts, func(a, b Attestation) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return bytes.Compare(a.UID[:], b.UID[:])
	})
}

// Float returns a pointer to w, for building attestations with a fixed weight.
func Float(w float64) *float64 {
	return &w
}
