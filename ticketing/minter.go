package ticketing

import (
	"context"

	"github.com/jlynch25/golang-ticketing/wallet"
)

// Minter supplies the ownership unit attached to each new ticket. The program
// records the returned address and never touches the unit again.
type Minter interface {
	NewMint(ctx context.Context, authority wallet.Address) (wallet.Address, error)
}

// MinterFunc adapts a function to Minter.
type MinterFunc func(ctx context.Context, authority wallet.Address) (wallet.Address, error)

// NewMint function
func (f MinterFunc) NewMint(ctx context.Context, authority wallet.Address) (wallet.Address, error) {
	return f(ctx, authority)
}

// AddressMinter creates every unit at a fresh keypair address.
type AddressMinter struct{}

// NewMint function
func (AddressMinter) NewMint(context.Context, wallet.Address) (wallet.Address, error) {
	return wallet.NewAddress()
}
