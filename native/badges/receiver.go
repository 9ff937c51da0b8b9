package badges

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Directory tracks contract-like accounts. Ledgers, registries and factories
// are registered without a hook so badges can never be minted to them.
type Directory struct {
	mu       sync.RWMutex
	accounts map[common.Address]BadgeReceiver
}

func NewDirectory() *Directory {
	return &Directory{accounts: make(map[common.Address]BadgeReceiver)}
}

// RegisterContract marks addr as contract-like. hook may be nil.
func (d *Directory) RegisterContract(addr common.Address, hook BadgeReceiver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[addr] = hook
}

// Receiver implements ReceiverView.
func (d *Directory) Receiver(addr common.Address) (BadgeReceiver, bool) {
	if d == nil {
		return nil, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	hook, ok := d.accounts[addr]
	return hook, ok
}

// AcceptAll is a BadgeReceiver that accepts every badge.
type AcceptAll struct{}

func (AcceptAll) OnBadgeReceived(common.Address, common.Address, *uint256.Int, uint64) bool {
	return true
}

func checkReceiver(view ReceiverView, operator, to common.Address, id *uint256.Int) error {
	if to == (common.Address{}) {
		return ErrReceiverNotCapable
	}
	if view == nil {
		return nil
	}
	hook, contract := view.Receiver(to)
	if !contract {
		return nil
	}
	if hook == nil || !hook.OnBadgeReceived(operator, common.Address{}, id, 1) {
		return ErrReceiverNotCapable
	}
	return nil
}
