package source

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func word(v int64) []byte {
	return EncodeWord(big.NewInt(v))
}

func TestWeightDecoder_DecodeWord(t *testing.T) {
	tests := []struct {
		name     string
		decoder  WeightDecoder
		data     []byte
		expected float64
		wantErr  bool
	}{
		{"first word", WeightDecoder{}, word(80), 80, false},
		{"second word", WeightDecoder{Offset: WordSize}, append(word(1), word(42)...), 42, false},
		{"decimals", WeightDecoder{Decimals: 2}, word(7550), 75.5, false},
		{"zero", WeightDecoder{}, word(0), 0, false},
		{"short payload", WeightDecoder{}, []byte{0x01, 0x02}, 0, true},
		{"offset past end", WeightDecoder{Offset: WordSize}, word(1), 0, true},
		{"negative offset", WeightDecoder{Offset: -1}, word(1), 0, true},
		{"empty payload", WeightDecoder{}, nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.decoder.DecodeWord(tt.data)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsUndecodable(err))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestWeightDecoder_MaxWord(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	got, err := WeightDecoder{}.DecodeWord(EncodeWord(max))
	require.NoError(t, err)
	assert.False(t, math.IsInf(got, 0))
	assert.Greater(t, got, 1e76)
}

func TestWeightDecoder_PreDecodedWeightWins(t *testing.T) {
	d := WeightDecoder{}
	got, err := d.Decode(Attestation{Weight: Float(12.5), Data: word(99)})
	require.NoError(t, err)
	assert.Equal(t, 12.5, got)

	_, err = d.Decode(Attestation{Weight: Float(math.NaN())})
	assert.True(t, IsUndecodable(err))
}
