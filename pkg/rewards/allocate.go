// Package rewards converts reputation scores into exact integer payouts and
// exposes them through the reward-source abstraction.
package rewards

import (
	"math"
	"math/big"
	"slices"

	"github.com/cockroachdb/errors"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
)

// ScorePrecision is the fixed factor used to turn float scores into integers.
const ScorePrecision = 1_000_000

// MaxPoolBits bounds the pool: it must be strictly below 2^MaxPoolBits.
const MaxPoolBits = 256

var (
	ErrInvalidPool         = errors.New("reward pool must be a non-negative integer")
	ErrPoolTooLarge        = errors.New("reward pool exceeds maximum size")
	ErrInvalidThreshold    = errors.New("minimum score threshold must be a finite non-negative number")
	ErrAllocationIntegrity = errors.New("allocation integrity violation")
)

var (
	scorePrecision = big.NewInt(ScorePrecision)
	maxPool        = new(big.Int).Lsh(big.NewInt(1), MaxPoolBits)
)

// Allocation maps each rewarded account to its integer payout. Accounts
// that earned nothing are absent.
type Allocation map[account.Account]*big.Int

// Total returns the sum of all rewards.
func (a Allocation) Total() *big.Int {
	total := new(big.Int)
	for _, r := range a {
		total.Add(total, r)
	}
	return total
}

// Get returns the reward for acct, or zero if it received nothing.
func (a Allocation) Get(acct account.Account) *big.Int {
	if r, ok := a[acct]; ok {
		return new(big.Int).Set(r)
	}
	return new(big.Int)
}

// Accounts returns the rewarded accounts in identity order.
func (a Allocation) Accounts() []account.Account {
	out := make([]account.Account, 0, len(a))
	for acct := range a {
		out = append(out, acct)
	}
	account.Sort(out)
	return out
}

type scaledScore struct {
	account account.Account
	scaled  *big.Int
}

// ValidatePool checks that pool is non-nil, non-negative and below 2^MaxPoolBits.
func ValidatePool(pool *big.Int) error {
	if pool == nil || pool.Sign() < 0 {
		return ErrInvalidPool
	}
	if pool.Cmp(maxPool) >= 0 {
		return errors.Wrapf(ErrPoolTooLarge, "%d bits >= %d", pool.BitLen(), MaxPoolBits)
	}
	return nil
}

// ValidateThreshold checks that threshold is finite and non-negative.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
		return errors.Wrapf(ErrInvalidThreshold, "got %v", threshold)
	}
	return nil
}

// AllocateRewards distributes pool across scores in proportion to each score.
//
// Accounts scoring below minThreshold are dropped from both numerator and
// denominator. Surviving scores are scaled by ScorePrecision and truncated;
// scores that truncate to zero take no part. Rewards are computed with
// integer division in descending score order (ties by ascending account),
// and the last account receives whatever is left, so the pool is
// distributed exactly.
func AllocateRewards(scores map[account.Account]float64, pool *big.Int, minThreshold float64) (Allocation, error) {
	if err := ValidatePool(pool); err != nil {
		return nil, err
	}
	if err := ValidateThreshold(minThreshold); err != nil {
		return nil, err
	}

	allocation := make(Allocation)
	if pool.Sign() == 0 {
		return allocation, nil
	}

	survivors := make([]scaledScore, 0, len(scores))
	total := new(big.Int)
	for acct, score := range scores {
		if math.IsNaN(score) || score < minThreshold {
			continue
		}
		scaled := scaleScore(score)
		if scaled.Sign() == 0 {
			// Truncates to no share; must not absorb the remainder.
			continue
		}
		survivors = append(survivors, scaledScore{account: acct, scaled: scaled})
		total.Add(total, scaled)
	}

	if len(survivors) == 0 || total.Sign() == 0 {
		return allocation, nil
	}

	slices.SortFunc(survivors, func(a, b scaledScore) int {
		if c := b.scaled.Cmp(a.scaled); c != 0 {
			return c
		}
		return a.account.Compare(b.account)
	})

	remaining := new(big.Int).Set(pool)
	share := new(big.Int)
	last := len(survivors) - 1

	for i, s := range survivors {
		if remaining.Sign() == 0 {
			break
		}

		var reward *big.Int
		if i == last {
			reward = new(big.Int).Set(remaining)
		} else {
			share.Mul(s.scaled, pool)
			share.Quo(share, total)
			if share.Cmp(remaining) > 0 {
				share.Set(remaining)
			}
			reward = new(big.Int).Set(share)
		}

		remaining.Sub(remaining, reward)
		if reward.Sign() > 0 {
			allocation[s.account] = reward
		}
	}

	if err := verifyConservation(allocation, pool); err != nil {
		return nil, err
	}
	return allocation, nil
}

// scaleScore truncates score*ScorePrecision to an integer. Scores are
// normalized to [0,1], but larger inputs are handled through big.Float
// rather than overflowing int64.
func scaleScore(score float64) *big.Int {
	if score <= 0 || math.IsInf(score, 0) {
		return new(big.Int)
	}
	scaled := score * ScorePrecision
	if scaled < math.MaxInt64 {
		return big.NewInt(int64(scaled))
	}
	i, _ := new(big.Float).Mul(big.NewFloat(score), new(big.Float).SetInt(scorePrecision)).Int(nil)
	return i
}

// verifyConservation fails hard when the rewards exceed the pool. The
// allocation is never trimmed to fit: an overshoot means the arithmetic
// above is wrong.
func verifyConservation(allocation Allocation, pool *big.Int) error {
	total := allocation.Total()
	if total.Cmp(pool) > 0 {
		return errors.Mark(
			errors.AssertionFailedf("allocated %s exceeds pool %s", total.String(), pool.String()),
			ErrAllocationIntegrity,
		)
	}
	for acct, r := range allocation {
		if r.Sign() < 0 || r.Cmp(pool) > 0 {
			return errors.Mark(
				errors.AssertionFailedf("reward %s for %s outside [0, %s]", r.String(), acct.Hex(), pool.String()),
				ErrAllocationIntegrity,
			)
		}
	}
	return nil
}
