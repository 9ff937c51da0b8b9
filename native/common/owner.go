package common

import (
	"errors"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ErrNotOwner is returned when a state-changing call is made by anyone other
// than the configured authority.
var ErrNotOwner = errors.New("ownable: caller is not the owner")

// RequireOwner fails closed unless caller is the configured owner. The zero
// address never holds authority.
func RequireOwner(owner, caller ethcommon.Address) error {
	if owner == (ethcommon.Address{}) || caller != owner {
		return ErrNotOwner
	}
	return nil
}
