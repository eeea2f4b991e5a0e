package source

import (
	"math"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
)

// WordSize is the length of one ABI-encoded static word.
const WordSize = common.HashLength

// WeightDecoder extracts an edge weight from an attestation payload.
//
// The weight is the unsigned 256-bit word starting at byte Offset of the
// payload, divided by 10^Decimals.
type WeightDecoder struct {
	Offset          int
	Decimals        uint8
	DefaultWeight   float64 // Used for undecodable payloads unless SkipUndecodable
	SkipUndecodable bool
}

// DefaultWeightDecoder reads the first word as an integer weight and skips
// attestations it cannot decode.
func DefaultWeightDecoder() WeightDecoder {
	return WeightDecoder{SkipUndecodable: true}
}

// Decode returns the weight carried by att. A pre-decoded Weight wins over
// the payload.
func (d WeightDecoder) Decode(att Attestation) (float64, error) {
	if att.Weight != nil {
		w := *att.Weight
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, errors.Mark(errors.Newf("weight %v is not finite", w), ErrUndecodableWeight)
		}
		return w, nil
	}
	return d.DecodeWord(att.Data)
}

// DecodeWord decodes the word at d.Offset within data.
func (d WeightDecoder) DecodeWord(data []byte) (float64, error) {
	if d.Offset < 0 {
		return 0, errors.Mark(errors.Newf("negative offset %d", d.Offset), ErrUndecodableWeight)
	}
	end := d.Offset + WordSize
	if len(data) < end {
		return 0, errors.Mark(
			errors.Newf("payload has %d bytes, need %d for word at offset %d", len(data), end, d.Offset),
			ErrUndecodableWeight,
		)
	}

	word := common.BytesToHash(data[d.Offset:end]).Big()
	value := new(big.Float).SetInt(word)
	if d.Decimals > 0 {
		scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Decimals)), nil))
		value.Quo(value, scale)
	}

	w, _ := value.Float64()
	if math.IsInf(w, 0) {
		return 0, errors.Mark(errors.Newf("word %s overflows float64", word.String()), ErrUndecodableWeight)
	}
	return w, nil
}

// EncodeWord returns the 32-byte big-endian ABI word for v. It is the
// inverse of DecodeWord with zero decimals.
func EncodeWord(v *big.Int) []byte {
	return common.BigToHash(v).Bytes()
}
