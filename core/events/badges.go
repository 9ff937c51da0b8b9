package events

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"soulbound/core/types"
)

const (
	// TypeBadgeTransferSingle is emitted once per badge ownership change
	// (mint, revoke, migration).
	TypeBadgeTransferSingle = "badges.transfer.single"
	// TypeBadgeURIUpdated is emitted when a ledger owner replaces the URI.
	TypeBadgeURIUpdated = "badges.uri.updated"
	// TypeBadgeOwnershipTransferred is emitted when a ledger changes owner.
	TypeBadgeOwnershipTransferred = "badges.ownership.transferred"
	// TypeBadgeSetCreated is emitted by the factory for every new ledger.
	TypeBadgeSetCreated = "badges.set.created"
)

// BadgeTransferSingle mirrors the ERC-1155 TransferSingle record. From is the
// zero address on mint and To is the zero address on revoke.
type BadgeTransferSingle struct {
	Ledger   common.Address
	Operator common.Address
	From     common.Address
	To       common.Address
	ID       *uint256.Int
	Amount   uint64
}

// EventType implements the Event interface.
func (BadgeTransferSingle) EventType() string { return TypeBadgeTransferSingle }

// IsMint reports whether the transfer created a badge.
func (e BadgeTransferSingle) IsMint() bool { return e.From == (common.Address{}) }

// IsRevoke reports whether the transfer destroyed a badge.
func (e BadgeTransferSingle) IsRevoke() bool { return e.To == (common.Address{}) }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e BadgeTransferSingle) Event() *types.Event {
	return &types.Event{
		Type: TypeBadgeTransferSingle,
		Attributes: map[string]string{
			"ledger":   lowerHex(e.Ledger),
			"operator": lowerHex(e.Operator),
			"from":     lowerHex(e.From),
			"to":       lowerHex(e.To),
			"id":       formatTokenID(e.ID),
			"amount":   strconv.FormatUint(e.Amount, 10),
		},
	}
}

type BadgeURIUpdated struct {
	Ledger common.Address
	Caller common.Address
	URI    string
}

// EventType implements the Event interface.
func (BadgeURIUpdated) EventType() string { return TypeBadgeURIUpdated }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e BadgeURIUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeBadgeURIUpdated,
		Attributes: map[string]string{
			"ledger": lowerHex(e.Ledger),
			"caller": lowerHex(e.Caller),
			"uri":    e.URI,
		},
	}
}

type BadgeOwnershipTransferred struct {
	Ledger   common.Address
	Previous common.Address
	Owner    common.Address
}

// EventType implements the Event interface.
func (BadgeOwnershipTransferred) EventType() string { return TypeBadgeOwnershipTransferred }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e BadgeOwnershipTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeBadgeOwnershipTransferred,
		Attributes: map[string]string{
			"ledger":   lowerHex(e.Ledger),
			"previous": lowerHex(e.Previous),
			"owner":    lowerHex(e.Owner),
		},
	}
}

type BadgeSetCreated struct {
	Factory  common.Address
	Ledger   common.Address
	Owner    common.Address
	Registry common.Address
	URI      string
}

// EventType implements the Event interface.
func (BadgeSetCreated) EventType() string { return TypeBadgeSetCreated }

// Event converts the strongly typed event to the generic representation used by subscribers.
func (e BadgeSetCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeBadgeSetCreated,
		Attributes: map[string]string{
			"factory":  lowerHex(e.Factory),
			"ledger":   lowerHex(e.Ledger),
			"owner":    lowerHex(e.Owner),
			"registry": lowerHex(e.Registry),
			"uri":      e.URI,
		},
	}
}

func lowerHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func formatTokenID(id *uint256.Int) string {
	if id == nil {
		return "0"
	}
	return id.Dec()
}
