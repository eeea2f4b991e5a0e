package rewards

import (
	"context"
	"math/big"
	"strconv"

	"github.com/dd0wney/cluso-trustrank/pkg/account"
)

// DirectAssignmentSource serves a fixed account to amount mapping.
type DirectAssignmentSource struct {
	name        string
	description string
	assignments Allocation
}

// NewDirectAssignmentSource creates a source from assignments. Amounts are
// copied; nil or negative amounts are rejected.
func NewDirectAssignmentSource(name, description string, assignments map[account.Account]*big.Int) (*DirectAssignmentSource, error) {
	copied := make(Allocation, len(assignments))
	for acct, amount := range assignments {
		if amount == nil || amount.Sign() < 0 {
			return nil, ErrInvalidPool
		}
		copied[acct] = new(big.Int).Set(amount)
	}
	return &DirectAssignmentSource{name: name, description: description, assignments: copied}, nil
}

// Name returns the source name.
func (s *DirectAssignmentSource) Name() string {
	return s.name
}

// Accounts returns the assigned accounts in identity order.
func (s *DirectAssignmentSource) Accounts(ctx context.Context) ([]account.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.assignments.Accounts(), nil
}

// EventsAndValue returns the assigned amount. Each assignment counts as one event.
func (s *DirectAssignmentSource) EventsAndValue(ctx context.Context, acct account.Account) (Reward, error) {
	if err := ctx.Err(); err != nil {
		return Reward{}, err
	}
	r := Reward{Account: acct, Value: s.assignments.Get(acct)}
	if _, ok := s.assignments[acct]; ok {
		r.Events = 1
	}
	return r, nil
}

// Metadata describes the source.
func (s *DirectAssignmentSource) Metadata(ctx context.Context) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	return Metadata{
		Name:        s.name,
		Kind:        "direct",
		Description: s.description,
		Attributes: map[string]string{
			"accounts": strconv.Itoa(len(s.assignments)),
			"total":    s.assignments.Total().String(),
		},
	}, nil
}
