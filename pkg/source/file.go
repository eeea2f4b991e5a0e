package source

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/validation"
)

// attestationFile is the on-disk layout read by FileFetcher.
//
//	attestations:
//	  - schema: 0x…
//	    uid: 0x…
//	    attester: 0x…
//	    recipient: 0x…
//	    weight: 80        # or data: 0x… (ABI payload)
//	    timestamp: 1700000000
//	    revoked: false
type attestationFile struct {
	Attestations []attestationRecord `yaml:"attestations" validate:"dive"`
}

type attestationRecord struct {
	Schema    string   `yaml:"schema" validate:"required,bytes32"`
	UID       string   `yaml:"uid" validate:"required,bytes32"`
	Attester  string   `yaml:"attester" validate:"required,eth_addr"`
	Recipient string   `yaml:"recipient" validate:"required,eth_addr"`
	Weight    *float64 `yaml:"weight,omitempty"`
	Data      string   `yaml:"data,omitempty"`
	Timestamp uint64   `yaml:"timestamp"`
	Revoked   bool     `yaml:"revoked"`
}

func (r attestationRecord) toAttestation() (Attestation, error) {
	att := Attestation{
		UID:       common.HexToHash(r.UID),
		Attester:  account.Account(common.HexToAddress(r.Attester)),
		Recipient: account.Account(common.HexToAddress(r.Recipient)),
		Weight:    r.Weight,
		Timestamp: r.Timestamp,
		Revoked:   r.Revoked,
	}
	if r.Data != "" {
		data, err := hexutil.Decode(r.Data)
		if err != nil {
			return Attestation{}, NewError("decode").Attestation(r.UID).Field("data").
				Cause(errors.Mark(err, ErrInvalidRecord)).Err()
		}
		att.Data = data
	}
	return att, nil
}

func fromAttestation(schemaID string, att Attestation) attestationRecord {
	rec := attestationRecord{
		Schema:    schemaID,
		UID:       att.UID.Hex(),
		Attester:  att.Attester.Hex(),
		Recipient: att.Recipient.Hex(),
		Weight:    att.Weight,
		Timestamp: att.Timestamp,
		Revoked:   att.Revoked,
	}
	if len(att.Data) > 0 {
		rec.Data = hexutil.Encode(att.Data)
	}
	return rec
}

// FileFetcher reads attestations from a YAML file. The file is re-read on
// every fetch.
type FileFetcher struct {
	path string
}

// NewFileFetcher creates a fetcher over the YAML file at path.
func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{path: path}
}

// Path returns the file the fetcher reads.
func (f *FileFetcher) Path() string {
	return f.path
}

// FetchAttestations returns the attestations in the file recorded under schemaID.
func (f *FileFetcher) FetchAttestations(ctx context.Context, schemaID string) ([]Attestation, error) {
	if err := ctx.Err(); err != nil {
		return nil, FetchError(schemaID, err)
	}

	records, err := f.load()
	if err != nil {
		return nil, err
	}

	var out []Attestation
	for _, rec := range records {
		if !strings.EqualFold(rec.Schema, schemaID) {
			continue
		}
		att, err := rec.toAttestation()
		if err != nil {
			return nil, err
		}
		out = append(out, att)
	}

	SortAttestations(out)
	return out, nil
}

func (f *FileFetcher) load() ([]attestationRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, NewError("read").File(f.path).Cause(errors.Mark(err, ErrFetchFailed)).Err()
	}

	var doc attestationFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewError("parse").File(f.path).Cause(errors.Mark(err, ErrInvalidRecord)).Err()
	}
	if err := validation.Struct(&doc); err != nil {
		return nil, NewError("validate").File(f.path).Cause(errors.Mark(err, ErrInvalidRecord)).Err()
	}
	return doc.Attestations, nil
}

// WriteFile writes atts for schemaID to path in the format FileFetcher reads.
func WriteFile(path, schemaID string, atts []Attestation) error {
	doc := attestationFile{Attestations: make([]attestationRecord, len(atts))}
	for i, att := range atts {
		doc.Attestations[i] = fromAttestation(schemaID, att)
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return NewError("encode").File(path).Cause(err).Err()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return NewError("write").File(path).Cause(err).Err()
	}
	return nil
}
