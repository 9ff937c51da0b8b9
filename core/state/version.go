package state

import (
	"errors"
	"fmt"
	"math"
)

// StateVersion is the layout of the ledger, registry and factory records this
// binary reads and writes. Bump it when a stored record changes shape.
const StateVersion uint32 = 1

// ErrStateVersionMismatch is returned when a store was written with a
// different layout.
var ErrStateVersionMismatch = errors.New("state: schema version mismatch")

var stateVersionKey = []byte("state/version")

// SetStateVersion overwrites the stored schema version.
func (m *Manager) SetStateVersion(version uint32) error {
	return m.KVPut(stateVersionKey, uint64(version))
}

// StateVersion reads the stored schema version. ok is false for a store that
// was never stamped.
func (m *Manager) StateVersion() (version uint32, ok bool, err error) {
	var stored uint64
	if ok, err = m.KVGet(stateVersionKey, &stored); err != nil || !ok {
		return 0, ok, err
	}
	if stored > math.MaxUint32 {
		return 0, false, fmt.Errorf("state: schema version %d out of range", stored)
	}
	return uint32(stored), true, nil
}

// EnsureStateVersion stamps an unstamped store and rejects one written with a
// different layout.
func EnsureStateVersion(m *Manager) error {
	version, ok, err := m.StateVersion()
	switch {
	case err != nil:
		return err
	case !ok:
		return m.SetStateVersion(StateVersion)
	case version != StateVersion:
		return fmt.Errorf("%w: store has %d, binary expects %d", ErrStateVersionMismatch, version, StateVersion)
	}
	return nil
}
