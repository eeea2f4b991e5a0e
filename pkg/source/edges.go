package source

import (
	"github.com/dd0wney/cluso-trustrank/pkg/graph"
	"github.com/dd0wney/cluso-trustrank/pkg/logging"
	"github.com/dd0wney/cluso-trustrank/pkg/metrics"
)

// Conversion outcomes, used as metric labels.
const (
	OutcomeAccepted       = "accepted"
	OutcomeDefaulted      = "defaulted"
	OutcomeRevoked        = "revoked"
	OutcomeInvalidAddress = "invalid_address"
	OutcomeUndecodable    = "undecodable"
)

// EdgeStats counts what ToEdges did with each attestation.
type EdgeStats struct {
	Total          int
	Accepted       int // Includes Defaulted
	Defaulted      int
	Revoked        int
	InvalidAddress int
	Undecodable    int // Skipped because the weight could not be decoded
}

// Skipped returns the number of attestations that produced no edge.
func (s EdgeStats) Skipped() int {
	return s.Revoked + s.InvalidAddress + s.Undecodable
}

// Record adds the counts to the attestation outcome counter.
func (s EdgeStats) Record(reg *metrics.Registry) {
	if reg == nil {
		return
	}
	reg.RecordAttestations(OutcomeAccepted, s.Accepted-s.Defaulted)
	reg.RecordAttestations(OutcomeDefaulted, s.Defaulted)
	reg.RecordAttestations(OutcomeRevoked, s.Revoked)
	reg.RecordAttestations(OutcomeInvalidAddress, s.InvalidAddress)
	reg.RecordAttestations(OutcomeUndecodable, s.Undecodable)
}

// ToEdges converts attestations into graph edges in input order.
//
// Revoked attestations are skipped entirely. Attestations with a zero
// attester or recipient are skipped as invalid. An undecodable weight is
// logged and either skipped or replaced by the decoder's DefaultWeight.
// A single bad attestation never aborts the conversion.
func ToEdges(atts []Attestation, decoder WeightDecoder, logger logging.Logger) ([]graph.Edge, EdgeStats) {
	logger = logging.OrNop(logger)
	stats := EdgeStats{Total: len(atts)}
	edges := make([]graph.Edge, 0, len(atts))

	for _, att := range atts {
		if att.Revoked {
			stats.Revoked++
			continue
		}

		if att.Attester.IsZero() || att.Recipient.IsZero() {
			stats.InvalidAddress++
			logger.Warn("skipping attestation with invalid address",
				logging.String("uid", att.UID.Hex()),
				logging.String("attester", att.Attester.Hex()),
				logging.String("recipient", att.Recipient.Hex()))
			continue
		}

		weight, err := decoder.Decode(att)
		if err != nil {
			if decoder.SkipUndecodable {
				stats.Undecodable++
				logger.Warn("skipping attestation with undecodable weight",
					logging.String("uid", att.UID.Hex()),
					logging.Error(err))
				continue
			}
			stats.Defaulted++
			weight = decoder.DefaultWeight
			logger.Warn("using default weight for undecodable attestation",
				logging.String("uid", att.UID.Hex()),
				logging.Float64("weight", weight),
				logging.Error(err))
		}

		stats.Accepted++
		edges = append(edges, graph.Edge{From: att.Attester, To: att.Recipient, Weight: weight})
	}

	logger.Debug("converted attestations",
		logging.Count(stats.Total),
		logging.Int("accepted", stats.Accepted),
		logging.Int("skipped", stats.Skipped()))

	return edges, stats
}
