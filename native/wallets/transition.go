package wallets

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"soulbound/core/events"
	"soulbound/native/badges"
	nativecommon "soulbound/native/common"
)

// TransitionAcrossLedgers migrates every badge original holds on the listed
// ledgers to replacement. Owner only.
//
// Every ledger is staged before any is committed, so a rejection on one ledger
// leaves all of them untouched. Stages run concurrently; the reported error is
// the first in list order. Repeated ledger references are migrated once.
// It returns the total number of badges moved.
func (r *Registry) TransitionAcrossLedgers(ctx context.Context, caller, original, replacement common.Address, ledgers []Migrator) (uint64, error) {
	ctx, span := r.tracer.Start(ctx, "wallets.transition_across_ledgers",
		trace.WithAttributes(
			attribute.String("wallets.original", original.Hex()),
			attribute.String("wallets.replacement", replacement.Hex()),
			attribute.Int("wallets.ledgers", len(ledgers)),
		))
	defer span.End()

	r.transitions.Lock()
	defer r.transitions.Unlock()

	moved, targets, err := r.transition(ctx, caller, original, replacement, ledgers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.metrics.ObserveRejected("transition_across_ledgers")
		r.metrics.ObserveTransition(false)
		return 0, err
	}
	span.SetAttributes(attribute.Int64("wallets.moved", int64(moved)))
	span.SetStatus(codes.Ok, "transition committed")
	r.metrics.ObserveTransition(true)

	r.mu.RLock()
	emitter := r.emitter
	r.mu.RUnlock()
	emitter.Emit(events.WalletTransitioned{
		Registry:    r.address,
		Original:    original,
		Replacement: replacement,
		Ledgers:     targets,
		Moved:       moved,
	})
	return moved, nil
}

func (r *Registry) transition(ctx context.Context, caller, original, replacement common.Address, ledgers []Migrator) (uint64, []common.Address, error) {
	r.mu.RLock()
	pauses := r.pauses
	r.mu.RUnlock()
	if err := nativecommon.Guard(pauses, moduleName); err != nil {
		return 0, nil, err
	}
	owner, err := r.Owner()
	if err != nil {
		return 0, nil, err
	}
	if err := nativecommon.RequireOwner(owner, caller); err != nil {
		return 0, nil, err
	}
	linked, err := r.LinkedWalletOf(original)
	if err != nil {
		return 0, nil, err
	}
	if original == replacement || linked != replacement {
		return 0, nil, fmt.Errorf("%w: %s is not linked to %s", ErrWalletNotLinked, original.Hex(), replacement.Hex())
	}

	targets := dedupe(ledgers)
	addrs := make([]common.Address, len(targets))
	for i, ledger := range targets {
		addrs[i] = ledger.Address()
	}

	pending := make([]*badges.PendingMove, len(targets))
	failures := make([]error, len(targets))
	var g errgroup.Group
	if r.maxParallel > 0 {
		g.SetLimit(r.maxParallel)
	}
	for i, ledger := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failures[i] = err
				return err
			}
			move, err := ledger.StageMove(r.address, original, replacement)
			if err != nil {
				failures[i] = fmt.Errorf("ledger %s: %w", ledger.Address().Hex(), err)
				return err
			}
			pending[i] = move
			return nil
		})
	}
	_ = g.Wait()

	for _, failure := range failures {
		if failure != nil {
			discardAll(pending)
			return 0, nil, failure
		}
	}

	var moved uint64
	for i, move := range pending {
		if err := move.Commit(); err != nil {
			// Earlier ledgers are already committed; release the rest.
			discardAll(pending[i+1:])
			return 0, nil, fmt.Errorf("commit ledger %s: %w", move.Ledger().Hex(), err)
		}
		moved += uint64(move.Moved())
	}
	return moved, addrs, nil
}

func dedupe(ledgers []Migrator) []Migrator {
	seen := make(map[common.Address]struct{}, len(ledgers))
	out := make([]Migrator, 0, len(ledgers))
	for _, ledger := range ledgers {
		if ledger == nil {
			continue
		}
		addr := ledger.Address()
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, ledger)
	}
	return out
}

func discardAll(pending []*badges.PendingMove) {
	for _, move := range pending {
		if move != nil {
			move.Discard()
		}
	}
}
