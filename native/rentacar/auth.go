package rentacar

import (
	"fmt"

	"rentacar/crypto"
)

// Authorizer proves that the current call was authorised by a principal. It is
// passed explicitly into every mutating operation and is consulted before any
// state is touched.
type Authorizer interface {
	RequireAuth(principal [20]byte) error
}

// Principals is the set of addresses whose consent to the current call has
// already been verified (for example by signature recovery).
type Principals map[[20]byte]struct{}

// NewPrincipals builds a principal set from verified addresses.
func NewPrincipals(addrs ...[20]byte) Principals {
	set := make(Principals, len(addrs))
	for _, addr := range addrs {
		set[addr] = struct{}{}
	}
	return set
}

// RequireAuth implements Authorizer.
func (p Principals) RequireAuth(principal [20]byte) error {
	if _, ok := p[principal]; ok {
		return nil
	}
	return fmt.Errorf("%w: %s did not authorize the call", ErrUnauthorized, crypto.FormatAccount(principal))
}

func requireAuth(auth Authorizer, principal [20]byte) error {
	if auth == nil {
		return fmt.Errorf("%w: no authorization supplied", ErrUnauthorized)
	}
	return auth.RequireAuth(principal)
}
