package rewards

import (
	"context"
	"math/big"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
	"github.com/dd0wney/cluso-trustrank/pkg/parallel"
)

// Collect queries src for every account it lists, fanning the per-account
// calls out over a pool of workers. Accounts with a zero reward are omitted.
func Collect(ctx context.Context, src Source, workers int) (Allocation, error) {
	accounts, err := src.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	rewards, err := parallel.Map(ctx, workers, accounts, func(ctx context.Context, acct account.Account) (Reward, error) {
		return src.EventsAndValue(ctx, acct)
	})
	if err != nil {
		return nil, err
	}

	out := make(Allocation, len(rewards))
	for _, r := range rewards {
		if r.Value != nil && r.Value.Sign() > 0 {
			out[r.Account] = new(big.Int).Set(r.Value)
		}
	}
	return out, nil
}
