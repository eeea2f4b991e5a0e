package publish

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/rewards"
)

func acct(b byte) account.Account {
	var a account.Account
	a[len(a)-1] = b
	return a
}

func sampleResults() Results {
	return Results{
		PassID:     "5f0c6c1e-7d4b-4b8e-9a51-0a7b8f9b2c11",
		Schema:     "0x00000000000000000000000000000000000000000000000000000000000000aa",
		ComputedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Iterations: 17,
		Converged:  true,
		Scores: map[account.Account]float64{
			acct(3): 0.2,
			acct(1): 0.5,
			acct(2): 0.3,
		},
		Rewards: rewards.Allocation{
			acct(1): big.NewInt(500),
			acct(2): big.NewInt(300),
			acct(3): big.NewInt(200),
		},
	}
}

func TestDigest_EmptyInput(t *testing.T) {
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Digest(nil))
}

func TestCanonical_IsDeterministic(t *testing.T) {
	first, err := sampleResults().Canonical()
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := sampleResults().Canonical()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	var doc encodedResults
	require.NoError(t, json.Unmarshal(first, &doc))
	assert.Equal(t, FormatVersion, doc.Version)
	assert.Equal(t, "1000", doc.Total)
	require.Len(t, doc.Entries, 3)
	assert.Equal(t, acct(1).Hex(), doc.Entries[0].Account)
	assert.Equal(t, acct(3).Hex(), doc.Entries[2].Account)
	assert.Equal(t, "200", doc.Entries[2].Reward)
}

func TestCanonical_RejectsNonFiniteScores(t *testing.T) {
	r := sampleResults()
	r.Scores[acct(1)] = math.NaN()

	_, err := r.Canonical()
	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestEncodeDecode(t *testing.T) {
	for _, compress := range []bool{false, true} {
		payload, err := Encode(sampleResults(), compress)
		require.NoError(t, err)

		plain, err := sampleResults().Canonical()
		require.NoError(t, err)
		assert.Equal(t, Digest(plain), payload.Digest, "digest covers the uncompressed body")

		got, err := Decode(payload)
		require.NoError(t, err)
		assert.Equal(t, sampleResults(), got)
	}
}

func TestDecode_DigestMismatch(t *testing.T) {
	payload, err := Encode(sampleResults(), false)
	require.NoError(t, err)
	payload.Digest = Digest([]byte("something else"))

	_, err = Decode(payload)
	assert.True(t, errors.Is(err, ErrDigestMismatch))
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := Decode(&Payload{Body: []byte("not snappy"), Compressed: true})
	assert.True(t, errors.Is(err, ErrInvalidPayload))

	future := []byte(`{"version":99}`)
	_, err = Decode(&Payload{Body: future, Digest: Digest(future)})
	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestDecode_RequiresDigest(t *testing.T) {
	payload, err := Encode(sampleResults(), true)
	require.NoError(t, err)
	payload.Digest = ""

	_, err = Decode(payload)
	assert.True(t, errors.Is(err, ErrMissingDigest))
	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestPayloadExtension(t *testing.T) {
	assert.Equal(t, ".json", (&Payload{}).Extension())
	assert.Equal(t, ".json.sz", (&Payload{Compressed: true}).Extension())
}
