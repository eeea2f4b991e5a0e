// Package publish encodes scoring results into a canonical, digest-stamped
// payload and hands it to a storage backend.
package publish

import (
	"encoding/hex"
	"encoding/json"
	"math"
	"math/big"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"golang.org/x/crypto/sha3"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/rewards"
)

// FormatVersion is written into every payload.
const FormatVersion = 1

var (
	ErrDigestMismatch = errors.New("payload digest mismatch")
	ErrInvalidPayload = errors.New("invalid results payload")
	ErrMissingDigest  = errors.New("payload carries no digest")
)

// Results is everything a scoring pass produced that is worth publishing.
type Results struct {
	PassID     string
	Schema     string
	ComputedAt time.Time
	Iterations int
	Converged  bool
	Scores     map[account.Account]float64
	Rewards    rewards.Allocation
}

// FromPass extracts publishable results from a scoring pass.
func FromPass(p *rewards.ScoringPass) Results {
	return Results{
		PassID:     p.ID,
		Schema:     p.Schema,
		ComputedAt: p.ComputedAt,
		Iterations: p.Result.Iterations,
		Converged:  p.Result.Converged,
		Scores:     p.Result.Scores,
		Rewards:    p.Rewards,
	}
}

type encodedEntry struct {
	Account string  `json:"account"`
	Score   float64 `json:"score"`
	Reward  string  `json:"reward"`
}

type encodedResults struct {
	Version    int            `json:"version"`
	PassID     string         `json:"passId"`
	Schema     string         `json:"schema"`
	ComputedAt string         `json:"computedAt"`
	Iterations int            `json:"iterations"`
	Converged  bool           `json:"converged"`
	Total      string         `json:"total"`
	Entries    []encodedEntry `json:"entries"`
}

// Canonical returns the deterministic JSON encoding of r: one entry per
// account in identity order, rewards as decimal strings.
func (r Results) Canonical() ([]byte, error) {
	seen := make(map[account.Account]struct{}, len(r.Scores)+len(r.Rewards))
	accounts := make([]account.Account, 0, len(r.Scores)+len(r.Rewards))
	for a := range r.Scores {
		seen[a] = struct{}{}
		accounts = append(accounts, a)
	}
	for a := range r.Rewards {
		if _, ok := seen[a]; !ok {
			accounts = append(accounts, a)
		}
	}
	account.Sort(accounts)

	doc := encodedResults{
		Version:    FormatVersion,
		PassID:     r.PassID,
		Schema:     r.Schema,
		ComputedAt: r.ComputedAt.UTC().Format(time.RFC3339Nano),
		Iterations: r.Iterations,
		Converged:  r.Converged,
		Total:      r.Rewards.Total().String(),
		Entries:    make([]encodedEntry, len(accounts)),
	}
	for i, a := range accounts {
		score := r.Scores[a]
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, errors.Wrapf(ErrInvalidPayload, "score for %s is not finite", a.Hex())
		}
		doc.Entries[i] = encodedEntry{
			Account: a.Hex(),
			Score:   score,
			Reward:  r.Rewards.Get(a).String(),
		}
	}

	return json.Marshal(doc)
}

// Digest returns the 0x-prefixed Keccak-256 hash of body.
func Digest(body []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(body)
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// Payload is an encoded Results ready for upload.
type Payload struct {
	Body       []byte // Canonical JSON, snappy-compressed when Compressed
	Digest     string // Digest of the uncompressed canonical JSON
	Compressed bool
}

// ContentType returns the MIME type of the uncompressed body.
func (p *Payload) ContentType() string {
	return "application/json"
}

// Extension returns the file suffix matching the payload encoding.
func (p *Payload) Extension() string {
	if p.Compressed {
		return ".json.sz"
	}
	return ".json"
}

// Encode produces the canonical payload for r.
func Encode(r Results, compress bool) (*Payload, error) {
	body, err := r.Canonical()
	if err != nil {
		return nil, err
	}

	p := &Payload{Body: body, Digest: Digest(body), Compressed: compress}
	if compress {
		p.Body = snappy.Encode(nil, body)
	}
	return p, nil
}

// Decode parses a payload produced by Encode and checks its digest.
// A payload without a digest is rejected.
func Decode(p *Payload) (Results, error) {
	if p.Digest == "" {
		return Results{}, errors.Mark(ErrMissingDigest, ErrInvalidPayload)
	}

	body := p.Body
	if p.Compressed {
		var err error
		body, err = snappy.Decode(nil, p.Body)
		if err != nil {
			return Results{}, errors.Mark(errors.Wrap(err, "decompressing payload"), ErrInvalidPayload)
		}
	}

	if got := Digest(body); got != p.Digest {
		return Results{}, errors.Wrapf(ErrDigestMismatch, "want %s, got %s", p.Digest, got)
	}

	var doc encodedResults
	if err := json.Unmarshal(body, &doc); err != nil {
		return Results{}, errors.Mark(errors.Wrap(err, "parsing payload"), ErrInvalidPayload)
	}
	if doc.Version != FormatVersion {
		return Results{}, errors.Wrapf(ErrInvalidPayload, "unsupported version %d", doc.Version)
	}

	computedAt, err := time.Parse(time.RFC3339Nano, doc.ComputedAt)
	if err != nil {
		return Results{}, errors.Mark(errors.Wrap(err, "parsing computedAt"), ErrInvalidPayload)
	}

	r := Results{
		PassID:     doc.PassID,
		Schema:     doc.Schema,
		ComputedAt: computedAt,
		Iterations: doc.Iterations,
		Converged:  doc.Converged,
		Scores:     make(map[account.Account]float64, len(doc.Entries)),
		Rewards:    make(rewards.Allocation),
	}
	for _, e := range doc.Entries {
		a, err := account.Parse(e.Account)
		if err != nil {
			return Results{}, errors.Mark(err, ErrInvalidPayload)
		}
		reward, ok := new(big.Int).SetString(e.Reward, 10)
		if !ok {
			return Results{}, errors.Wrapf(ErrInvalidPayload, "reward %q for %s", e.Reward, e.Account)
		}
		r.Scores[a] = e.Score
		if reward.Sign() > 0 {
			r.Rewards[a] = reward
		}
	}
	return r, nil
}
