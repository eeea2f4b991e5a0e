package rewards

import (
	"context"
	"math/big"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
)

// Reward is what a Source reports for one account.
type Reward struct {
	Account account.Account
	Events  int      // Qualifying events credited to the account
	Value   *big.Int // Reward amount; never nil
}

// Metadata describes a Source.
type Metadata struct {
	Name        string
	Kind        string
	Description string
	Attributes  map[string]string
}

// Source is a provider of per-account rewards. Implementations must be safe
// for concurrent use.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string
	// Accounts lists every account the source knows about, in identity order.
	Accounts(ctx context.Context) ([]account.Account, error)
	// EventsAndValue returns the reward for acct. Unknown accounts get a
	// zero reward, not an error.
	EventsAndValue(ctx context.Context, acct account.Account) (Reward, error)
	// Metadata describes the source.
	Metadata(ctx context.Context) (Metadata, error)
}
