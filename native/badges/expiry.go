package badges

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ExpiryTable maps token ids to the expiry recorded at mint time. It does not
// validate timestamps; that is the ledger's job.
type ExpiryTable struct {
	st     kvStore
	ledger common.Address
}

// NewExpiryTable binds an expiry table to the ledger namespace inside st.
func NewExpiryTable(st kvStore, ledger common.Address) ExpiryTable {
	return ExpiryTable{st: st, ledger: ledger}
}

func (e ExpiryTable) Set(id *uint256.Int, expiry uint64) error {
	return e.st.KVPut(expiryKey(e.ledger, id), expiry)
}

func (e ExpiryTable) Clear(id *uint256.Int) error {
	return e.st.KVDelete(expiryKey(e.ledger, id))
}

// Get returns the recorded expiry and whether an entry exists.
func (e ExpiryTable) Get(id *uint256.Int) (uint64, bool, error) {
	var expiry uint64
	found, err := e.st.KVGet(expiryKey(e.ledger, id), &expiry)
	if err != nil || !found {
		return 0, false, err
	}
	return expiry, true, nil
}
