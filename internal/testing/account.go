package testing

import (
	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/crypto"
)

// Account is a named test principal with a deterministic key.
type Account struct {
	Name    string
	Key     *crypto.KeyPair
	Address account.Address
}

// NewAccount derives an account from name; equal names give equal accounts.
func NewAccount(name string) *Account {
	key := crypto.KeyPairFromSeed([]byte(name))
	return &Account{
		Name:    name,
		Key:     key,
		Address: key.Address(),
	}
}

func (a *Account) String() string {
	return a.Name + "(" + a.Address.String() + ")"
}
