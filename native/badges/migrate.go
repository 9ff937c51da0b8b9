package badges

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PendingMove is a staged migration. The ledger stays locked until Commit or
// Discard is called, so callers must always call one of them.
type PendingMove struct {
	ledger      *Ledger
	staged      *staged
	original    common.Address
	replacement common.Address
	moved       int
	done        bool
}

// Ledger returns the address of the ledger the move was staged on.
func (p *PendingMove) Ledger() common.Address {
	return p.ledger.address
}

// Moved returns the number of badges the move transfers.
func (p *PendingMove) Moved() int {
	return p.moved
}

// Commit applies the staged move, emits one transfer event per moved badge
// and releases the ledger.
func (p *PendingMove) Commit() error {
	if p.done {
		return ErrMoveFinished
	}
	p.done = true
	defer p.ledger.mu.Unlock()
	if err := p.ledger.finish(p.staged); err != nil {
		p.ledger.metrics.ObserveRejected("move_holder_badges")
		return err
	}
	p.ledger.metrics.ObserveMigrated(p.ledger.address, p.moved)
	return nil
}

// Discard drops the staged move and releases the ledger. Calling Discard
// after Commit is a no-op.
func (p *PendingMove) Discard() {
	if p.done {
		return
	}
	p.done = true
	p.staged.tx.Discard()
	p.ledger.mu.Unlock()
}

// StageMove validates and stages the migration of every badge owned by
// original onto replacement without making it visible. The caller must be the
// ledger owner or the registry the ledger consults, and the registry must
// list replacement as the linked wallet of original.
func (l *Ledger) StageMove(caller, original, replacement common.Address) (*PendingMove, error) {
	l.mu.Lock()
	s, err := l.begin()
	if err != nil {
		l.mu.Unlock()
		l.metrics.ObserveRejected("move_holder_badges")
		return nil, err
	}
	moved, err := l.stageMove(s, caller, original, replacement)
	if err != nil {
		s.tx.Discard()
		l.mu.Unlock()
		l.metrics.ObserveRejected("move_holder_badges")
		return nil, err
	}
	return &PendingMove{
		ledger:      l,
		staged:      s,
		original:    original,
		replacement: replacement,
		moved:       moved,
	}, nil
}

// MoveHolderBadges moves every badge owned by original to its linked
// replacement in one atomic step and returns the number of badges moved.
func (l *Ledger) MoveHolderBadges(caller, original, replacement common.Address) (int, error) {
	pending, err := l.StageMove(caller, original, replacement)
	if err != nil {
		return 0, err
	}
	if err := pending.Commit(); err != nil {
		return 0, err
	}
	return pending.Moved(), nil
}

func (l *Ledger) stageMove(s *staged, caller, original, replacement common.Address) (int, error) {
	if err := l.requireMigrator(s.record, caller); err != nil {
		return 0, err
	}
	if l.registry == nil || original == replacement {
		return 0, fmt.Errorf("%w: %s", ErrWalletNotLinked, original.Hex())
	}
	linked, err := l.registry.LinkedWalletOf(original)
	if err != nil {
		return 0, err
	}
	if linked != replacement {
		return 0, fmt.Errorf("%w: %s is not linked to %s", ErrWalletNotLinked, original.Hex(), replacement.Hex())
	}

	moved, err := s.bitmap.MoveAll(original, replacement)
	if err != nil {
		return 0, err
	}
	for _, badgeType := range moved {
		fromID := EncodeTokenID(badgeType, original)
		expiry, found, err := s.expiries.Get(fromID)
		if err != nil {
			return 0, err
		}
		if found {
			if err := s.expiries.Clear(fromID); err != nil {
				return 0, err
			}
			if err := s.expiries.Set(EncodeTokenID(badgeType, replacement), expiry); err != nil {
				return 0, err
			}
		}
		s.events = append(s.events, newTransferSingleEvent(l.address, caller, original, replacement, fromID))
	}
	return len(moved), nil
}

func (l *Ledger) requireMigrator(record *ledgerRecord, caller common.Address) error {
	if caller == record.Owner && caller != (common.Address{}) {
		return nil
	}
	if l.registry != nil && record.Registry != (common.Address{}) && caller == record.Registry {
		return nil
	}
	return ErrNotOwner
}
