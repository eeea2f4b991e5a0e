// Package account defines the 160-bit account identifier used throughout
// the reputation engine. Accounts are opaque: the engine only needs equality
// and a total order, both of which are byte-wise.
package account

import (
	"bytes"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
)

// Length is the size of an account identifier in bytes.
const Length = common.AddressLength

// ErrInvalidAccount is returned when a string cannot be parsed as an account.
var ErrInvalidAccount = errors.New("invalid account")

// Account is an opaque 160-bit identifier.
type Account common.Address

// Zero is the all-zero account. Source adapters treat it as invalid.
var Zero Account

// Parse parses a hex-encoded account, with or without the 0x prefix.
// Checksum casing is accepted but not enforced.
func Parse(s string) (Account, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return Zero, errors.Wrapf(ErrInvalidAccount, "%q", s)
	}
	return Account(common.HexToAddress(s)), nil
}

// MustParse is like Parse but panics on error. Intended for tests and fixtures.
func MustParse(s string) Account {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBytes builds an account from a byte slice. Longer inputs are cropped
// from the left, shorter ones are left-padded, matching common.BytesToAddress.
func FromBytes(b []byte) Account {
	return Account(common.BytesToAddress(b))
}

// Bytes returns a copy of the raw identifier.
func (a Account) Bytes() []byte {
	out := make([]byte, Length)
	copy(out, a[:])
	return out
}

// Hex returns the EIP-55 checksummed representation.
func (a Account) Hex() string {
	return common.Address(a).Hex()
}

func (a Account) String() string {
	return a.Hex()
}

// IsZero reports whether a is the all-zero account.
func (a Account) IsZero() bool {
	return a == Zero
}

// Compare orders accounts byte-wise. It returns -1, 0 or +1.
func (a Account) Compare(b Account) int {
	return bytes.Compare(a[:], b[:])
}

// Less reports whether a sorts before b.
func (a Account) Less(b Account) bool {
	return a.Compare(b) < 0
}

// MarshalText implements encoding.TextMarshaler.
func (a Account) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Account) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sort orders accounts in place by identity.
func Sort(accounts []Account) {
	slices.SortFunc(accounts, Account.Compare)
}

// Sorted returns a sorted copy of accounts.
func Sorted(accounts []Account) []Account {
	out := slices.Clone(accounts)
	Sort(out)
	return out
}

// Set is a membership set of accounts.
type Set map[Account]struct{}

// NewSet builds a set from the given accounts.
func NewSet(accounts ...Account) Set {
	s := make(Set, len(accounts))
	for _, a := range accounts {
		s[a] = struct{}{}
	}
	return s
}

// Contains reports whether a is a member of s.
func (s Set) Contains(a Account) bool {
	_, ok := s[a]
	return ok
}

// Sorted returns the members of s in identity order.
func (s Set) Sorted() []Account {
	out := make([]Account, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	Sort(out)
	return out
}
