package events

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"soulbound/core/types"
)

const (
	TypeWalletLinked       = "wallets.linked"
	TypeWalletTransitioned = "wallets.transitioned"
)

// WalletLinked is emitted when the registry records an original → replacement link.
type WalletLinked struct {
	Registry    common.Address
	Caller      common.Address
	Original    common.Address
	Replacement common.Address
}

// EventType implements the Event interface.
func (WalletLinked) EventType() string { return TypeWalletLinked }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e WalletLinked) Event() *types.Event {
	return &types.Event{
		Type: TypeWalletLinked,
		Attributes: map[string]string{
			"registry":    lowerHex(e.Registry),
			"caller":      lowerHex(e.Caller),
			"original":    lowerHex(e.Original),
			"replacement": lowerHex(e.Replacement),
		},
	}
}

// WalletTransitioned summarises a registry fan-out migration. Per-badge
// movements are reported by the ledgers themselves.
type WalletTransitioned struct {
	Registry    common.Address
	Original    common.Address
	Replacement common.Address
	Ledgers     []common.Address
	Moved       uint64
}

// EventType implements the Event interface.
func (WalletTransitioned) EventType() string { return TypeWalletTransitioned }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e WalletTransitioned) Event() *types.Event {
	ledgers := make([]string, 0, len(e.Ledgers))
	for _, ledger := range e.Ledgers {
		ledgers = append(ledgers, lowerHex(ledger))
	}
	return &types.Event{
		Type: TypeWalletTransitioned,
		Attributes: map[string]string{
			"registry":    lowerHex(e.Registry),
			"original":    lowerHex(e.Original),
			"replacement": lowerHex(e.Replacement),
			"ledgers":     strings.Join(ledgers, ","),
			"moved":       strconv.FormatUint(e.Moved, 10),
		},
	}
}
