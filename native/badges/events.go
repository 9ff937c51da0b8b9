package badges

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"soulbound/core/events"
)

func newTransferSingleEvent(ledger, operator, from, to common.Address, id *uint256.Int) events.BadgeTransferSingle {
	return events.BadgeTransferSingle{
		Ledger:   ledger,
		Operator: operator,
		From:     from,
		To:       to,
		ID:       new(uint256.Int).Set(id),
		Amount:   1,
	}
}

func newURIUpdatedEvent(ledger, caller common.Address, uri string) events.BadgeURIUpdated {
	return events.BadgeURIUpdated{Ledger: ledger, Caller: caller, URI: uri}
}

func newOwnershipTransferredEvent(ledger, previous, owner common.Address) events.BadgeOwnershipTransferred {
	return events.BadgeOwnershipTransferred{Ledger: ledger, Previous: previous, Owner: owner}
}
